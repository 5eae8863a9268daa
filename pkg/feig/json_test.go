// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"
)

// ============================================================
// JSON Tests
// ============================================================

func decodeJSONMap(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal %s: %v", b, err)
	}
	return out
}

func TestJSON_Data(t *testing.T) {
	m := decodeJSONMap(t, Classify(mustHex(t, dataFrameHex)))

	if m["kind"] != "data" || m["raw"] != dataFrameHex {
		t.Errorf("kind/raw = %v / %v", m["kind"], m["raw"])
	}
	if m["len"] != float64(41) || m["crc"] != float64(3639) || m["correct_crc"] != true {
		t.Errorf("len/crc = %v / %v / %v", m["len"], m["crc"], m["correct_crc"])
	}
	if m["reserved"] != "a102" {
		t.Errorf("reserved = %v, want a102", m["reserved"])
	}

	tags, ok := m["data"].([]interface{})
	if !ok || len(tags) != 1 {
		t.Fatalf("data = %v", m["data"])
	}
	tag := tags[0].(map[string]interface{})
	expect := map[string]interface{}{
		"record_len":           float64(29),
		"transponder_type":     "Iso18000_3M3",
		"transponder_type_raw": float64(0x84),
		"idd_t":                "EPC",
		"idd_t_raw":            float64(0),
		"idd_len":              float64(14),
		"serial_number":        "3400000874000000000000001328",
		"time":                 float64(0x0013df75),
		"mac":                  "00:1c:9b:07:09:57",
	}
	for k, v := range expect {
		if tag[k] != v {
			t.Errorf("tag[%q] = %v, want %v", k, tag[k], v)
		}
	}
}

func TestJSON_Keepalive(t *testing.T) {
	m := decodeJSONMap(t, Classify(mustHex(t, "02000a006e009604e262")))

	if m["kind"] != "keepalive" || m["flags_a"] != float64(0x96) || m["flags_b"] != float64(0x04) {
		t.Errorf("unexpected keepalive JSON: %v", m)
	}
	for _, k := range []string{"flag_temp_alarm", "flag_false_power", "flag_wrong_antenna_impedance", "flag_dc_power_error", "flag_noise"} {
		if m[k] != true {
			t.Errorf("%s = %v, want true", k, m[k])
		}
	}
}

func TestJSON_GenericInEnvelope(t *testing.T) {
	env := Envelope{Role: "reader", Data: Classify([]byte{0xde, 0xad})}
	m := decodeJSONMap(t, env)

	if m["role"] != "reader" {
		t.Errorf("role = %v", m["role"])
	}
	data := m["data"].(map[string]interface{})
	if data["kind"] != "generic" || data["raw"] != "dead" {
		t.Errorf("data = %v", data)
	}
}

func TestJSON_EmptyTagsIsArray(t *testing.T) {
	b, err := json.Marshal(Classify(EncodeData(DataFrame{})))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Contains(b, []byte(`"data":[]`)) {
		t.Errorf("zero tags should render as an empty array: %s", b)
	}
}

// ============================================================
// Capture Tests
// ============================================================

func TestCapture_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewCaptureWriter(&buf)

	at := time.Unix(1735689600, 123456789)
	records := []CaptureRecord{
		NewCaptureRecord(at, "/dev/ttyUSB0", keepaliveFrame),
		NewCaptureRecord(at.Add(time.Second), "", mustHex(t, dataFrameHex)),
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	r := NewCaptureReader(&buf)
	for i, want := range records {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if got.Source != want.Source || !bytes.Equal(got.Frame, want.Frame) || !got.Time().Equal(want.Time()) {
			t.Errorf("record %d = %+v, want %+v", i, got, want)
		}
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestCapture_CopiesFrame(t *testing.T) {
	frame := append([]byte(nil), keepaliveFrame...)
	rec := NewCaptureRecord(time.Now(), "", frame)
	frame[0] = 0
	if rec.Frame[0] != StartByte {
		t.Error("NewCaptureRecord must copy the frame")
	}
}

func TestCapture_CorruptStream(t *testing.T) {
	r := NewCaptureReader(bytes.NewReader([]byte{0xff, 0xff, 0xff}))
	if _, err := r.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("expected decode error, got %v", err)
	}
}
