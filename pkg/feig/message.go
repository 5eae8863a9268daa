// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

// Kind names the variant of a decoded Message
type Kind int

// Message kinds
const (
	KindGeneric Kind = iota
	KindData
	KindKeepalive
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindKeepalive:
		return "keepalive"
	default:
		return "generic"
	}
}

// Message is a classified frame. The set of implementations is closed:
// *Data, *Keepalive and *Generic.
type Message interface {
	Kind() Kind
	// Bytes returns the frame bytes the message was decoded from
	Bytes() []byte

	message()
}

// Data is an inventory report carrying zero or more tag reads
type Data struct {
	Raw         []byte
	MessageCode uint8
	Length      uint16
	ComAdr      uint8
	CommandCode uint8
	Status      uint8
	Reserved    [2]byte
	Tags        []TagRead
	CRC         uint16
	CorrectCRC  bool
}

// Keepalive is the reader's periodic liveness frame
type Keepalive struct {
	Raw         []byte
	MessageCode uint8
	Length      uint16
	ComAdr      uint8
	CommandCode uint8
	Status      uint8
	FlagsA      uint8
	FlagsB      uint8
	CRC         uint16
	CorrectCRC  bool

	TempAlarm             bool
	FalsePower            bool
	WrongAntennaImpedance bool
	DCPowerError          bool
	Noise                 bool
}

// Generic wraps a buffer that matched no known frame shape
type Generic struct {
	Raw []byte
}

// NewGeneric wraps any byte sequence, including an empty one
func NewGeneric(b []byte) *Generic {
	return &Generic{Raw: cloneBytes(b)}
}

func (d *Data) Kind() Kind      { return KindData }
func (k *Keepalive) Kind() Kind { return KindKeepalive }
func (g *Generic) Kind() Kind   { return KindGeneric }

func (d *Data) Bytes() []byte      { return d.Raw }
func (k *Keepalive) Bytes() []byte { return k.Raw }
func (g *Generic) Bytes() []byte   { return g.Raw }

func (*Data) message()      {}
func (*Keepalive) message() {}
func (*Generic) message()   {}

// Alarms returns the names of the raised keepalive alarm flags
func (k *Keepalive) Alarms() []string {
	var alarms []string
	if k.TempAlarm {
		alarms = append(alarms, AlarmTemperature)
	}
	if k.FalsePower {
		alarms = append(alarms, AlarmFalsePower)
	}
	if k.WrongAntennaImpedance {
		alarms = append(alarms, AlarmAntennaImpedance)
	}
	if k.DCPowerError {
		alarms = append(alarms, AlarmDCPower)
	}
	if k.Noise {
		alarms = append(alarms, AlarmNoise)
	}
	return alarms
}

// Alarm names, also used as metric labels
const (
	AlarmTemperature      = "temperature"
	AlarmFalsePower       = "false_power"
	AlarmAntennaImpedance = "wrong_antenna_impedance"
	AlarmDCPower          = "dc_power_error"
	AlarmNoise            = "noise"
)
