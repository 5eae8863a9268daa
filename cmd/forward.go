// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	forwardRedisAddr string
	forwardChannel   string
	forwardRole      string
	forwardSkipBad   bool
)

var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "Publish decoded frames to a Redis channel",
	Long: `Decode frames from the connection and publish each one as a JSON envelope
({"role": ..., "data": ...}) on a Redis pub/sub channel, so that other
services can consume tag reads and keepalives without owning the link.

The Redis server is taken from --redis-addr or the redis section of the
config file (redis.addr, redis.password, redis.db).

With --skip-bad, frames with a bad CRC and unrecognized frames are counted
but not published.`,
	RunE: runForward,
}

func init() {
	rootCmd.AddCommand(forwardCmd)
	forwardCmd.Flags().StringVar(&forwardRedisAddr, "redis-addr", "localhost:6379", "Redis server address")
	forwardCmd.Flags().StringVar(&forwardChannel, "channel", "feig", "Redis pub/sub channel")
	forwardCmd.Flags().StringVar(&forwardRole, "role", "reader", "Role written into every envelope")
	forwardCmd.Flags().BoolVar(&forwardSkipBad, "skip-bad", false, "Do not publish frames with a bad CRC or unknown layout")
}

// publisher delivers encoded envelopes to a downstream channel
type publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

// redisPublisher publishes on a Redis pub/sub channel
type redisPublisher struct {
	client *redis.Client
}

func newRedisPublisher(ctx context.Context, c RedisConfig) (*redisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: c.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &redisPublisher{client: rdb}, nil
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

// forwardMessage publishes one message wrapped in an envelope
func forwardMessage(ctx context.Context, pub publisher, channel, role string, m feig.Message) error {
	payload, err := json.Marshal(feig.Envelope{Role: role, Data: m})
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", m.Kind(), err)
	}
	if err := pub.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// forwardFrames publishes every frame from the stream and reports how many
// were sent and how many were held back
func forwardFrames(ctx context.Context, conn Connection, pub publisher, channel, role string, skipBad bool) (sent, held uint64, err error) {
	_, err = streamFrames(ctx, conn, func(frame []byte, skipped uint64) error {
		in := inspect(time.Now(), frame)
		if skipBad && !in.synced() {
			held++
			return nil
		}

		if err := forwardMessage(ctx, pub, channel, role, in.message); err != nil {
			// The link keeps running while Redis is unavailable
			logger.Warn("forward failed", zap.String("kind", in.message.Kind().String()), zap.Error(err))
			held++
			return nil
		}
		sent++
		return nil
	})
	return sent, held, err
}

func runForward(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pub, err := newRedisPublisher(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer pub.Close()

	conn, connInfo, err := OpenConnection(ctx, cfg.Connection)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info("forwarding frames",
		zap.String("connection", connInfo),
		zap.String("redis", cfg.Redis.Addr),
		zap.String("channel", cfg.Redis.Channel),
	)

	sent, held, err := forwardFrames(ctx, conn, pub, cfg.Redis.Channel, forwardRole, forwardSkipBad)
	logger.Info("forwarding stopped", zap.Uint64("sent", sent), zap.Uint64("held", held))
	return err
}
