// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

import (
	"encoding/hex"
	"encoding/json"
)

// Envelope tags a message with the role of whoever produced or routed it
type Envelope struct {
	Role string  `json:"role"`
	Data Message `json:"data"`
}

type jsonTagRead struct {
	RecordLength    uint16 `json:"record_len"`
	TransponderType string `json:"transponder_type"`
	TransponderRaw  uint8  `json:"transponder_type_raw"`
	IDDType         string `json:"idd_t"`
	IDDTypeRaw      uint8  `json:"idd_t_raw"`
	IDDLength       uint8  `json:"idd_len"`
	SerialNumber    string `json:"serial_number"`
	Time            uint32 `json:"time"`
	MAC             string `json:"mac"`
}

type jsonData struct {
	Kind        string        `json:"kind"`
	Raw         string        `json:"raw"`
	MessageCode uint8         `json:"message_code"`
	Length      uint16        `json:"len"`
	ComAdr      uint8         `json:"com_adr"`
	CommandCode uint8         `json:"command_code"`
	Status      uint8         `json:"status"`
	Reserved    string        `json:"reserved"`
	Tags        []jsonTagRead `json:"data"`
	CRC         uint16        `json:"crc"`
	CorrectCRC  bool          `json:"correct_crc"`
}

type jsonKeepalive struct {
	Kind                  string `json:"kind"`
	Raw                   string `json:"raw"`
	MessageCode           uint8  `json:"message_code"`
	Length                uint16 `json:"len"`
	ComAdr                uint8  `json:"com_adr"`
	CommandCode           uint8  `json:"command_code"`
	Status                uint8  `json:"status"`
	FlagsA                uint8  `json:"flags_a"`
	FlagsB                uint8  `json:"flags_b"`
	CRC                   uint16 `json:"crc"`
	CorrectCRC            bool   `json:"correct_crc"`
	TempAlarm             bool   `json:"flag_temp_alarm"`
	FalsePower            bool   `json:"flag_false_power"`
	WrongAntennaImpedance bool   `json:"flag_wrong_antenna_impedance"`
	DCPowerError          bool   `json:"flag_dc_power_error"`
	Noise                 bool   `json:"flag_noise"`
}

type jsonGeneric struct {
	Kind string `json:"kind"`
	Raw  string `json:"raw"`
}

// MarshalJSON renders a TagRead with hex serial number and named types
func (t TagRead) MarshalJSON() ([]byte, error) {
	return json.Marshal(tagReadJSON(t))
}

func tagReadJSON(t TagRead) jsonTagRead {
	return jsonTagRead{
		RecordLength:    t.RecordLength,
		TransponderType: t.TransponderType.String(),
		TransponderRaw:  uint8(t.TransponderType),
		IDDType:         t.IDDType.String(),
		IDDTypeRaw:      uint8(t.IDDType),
		IDDLength:       t.IDDLength,
		SerialNumber:    hex.EncodeToString(t.SerialNumber),
		Time:            t.Time,
		MAC:             t.MAC,
	}
}

// MarshalJSON renders a Data message as a flat object with kind "data"
func (d *Data) MarshalJSON() ([]byte, error) {
	tags := make([]jsonTagRead, 0, len(d.Tags))
	for _, t := range d.Tags {
		tags = append(tags, tagReadJSON(t))
	}
	return json.Marshal(jsonData{
		Kind:        KindData.String(),
		Raw:         hex.EncodeToString(d.Raw),
		MessageCode: d.MessageCode,
		Length:      d.Length,
		ComAdr:      d.ComAdr,
		CommandCode: d.CommandCode,
		Status:      d.Status,
		Reserved:    hex.EncodeToString(d.Reserved[:]),
		Tags:        tags,
		CRC:         d.CRC,
		CorrectCRC:  d.CorrectCRC,
	})
}

// MarshalJSON renders a Keepalive message as a flat object with kind "keepalive"
func (k *Keepalive) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonKeepalive{
		Kind:                  KindKeepalive.String(),
		Raw:                   hex.EncodeToString(k.Raw),
		MessageCode:           k.MessageCode,
		Length:                k.Length,
		ComAdr:                k.ComAdr,
		CommandCode:           k.CommandCode,
		Status:                k.Status,
		FlagsA:                k.FlagsA,
		FlagsB:                k.FlagsB,
		CRC:                   k.CRC,
		CorrectCRC:            k.CorrectCRC,
		TempAlarm:             k.TempAlarm,
		FalsePower:            k.FalsePower,
		WrongAntennaImpedance: k.WrongAntennaImpedance,
		DCPowerError:          k.DCPowerError,
		Noise:                 k.Noise,
	})
}

// MarshalJSON renders a Generic message as its kind and hex bytes
func (g *Generic) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonGeneric{
		Kind: KindGeneric.String(),
		Raw:  hex.EncodeToString(g.Raw),
	})
}
