package gatt

import "strings"

// Property is the characteristic properties bitmask.
type Property uint8

const (
	PropBroadcast       Property = 0x01
	PropRead            Property = 0x02
	PropWriteNoResponse Property = 0x04
	PropWrite           Property = 0x08
	PropNotify          Property = 0x10
	PropIndicate        Property = 0x20
	PropSignedWrite     Property = 0x40
	PropExtended        Property = 0x80
)

var propertyNames = []struct {
	flag Property
	name string
}{
	{PropBroadcast, "Broadcast"},
	{PropRead, "Read"},
	{PropWriteNoResponse, "Write No Response"},
	{PropWrite, "Write"},
	{PropNotify, "Notify"},
	{PropIndicate, "Indicate"},
	{PropSignedWrite, "Signed Write"},
	{PropExtended, "Extended"},
}

func (p Property) Has(f Property) bool { return p&f != 0 }

// Names decodes the set bits in a fixed order. Unknown bits are ignored.
func (p Property) Names() []string {
	var out []string
	for _, pn := range propertyNames {
		if p.Has(pn.flag) {
			out = append(out, pn.name)
		}
	}
	return out
}

func (p Property) String() string { return strings.Join(p.Names(), ", ") }

// Permission is the characteristic permissions bitmask.
type Permission uint16

const (
	PermRead               Permission = 0x01
	PermReadEncrypted      Permission = 0x02
	PermReadEncryptedMITM  Permission = 0x04
	PermWrite              Permission = 0x10
	PermWriteEncrypted     Permission = 0x20
	PermWriteEncryptedMITM Permission = 0x40
	PermWriteSigned        Permission = 0x80
	PermWriteSignedMITM    Permission = 0x100

	// PermEncrypted groups every permission that requires an encrypted link.
	PermEncrypted = PermReadEncrypted | PermReadEncryptedMITM | PermWriteEncrypted | PermWriteEncryptedMITM
	// PermMITM groups every permission that requires MITM protection.
	PermMITM = PermReadEncryptedMITM | PermWriteEncryptedMITM | PermWriteSignedMITM
)

var permissionNames = []struct {
	flag Permission
	name string
}{
	{PermRead, "Read"},
	{PermReadEncrypted, "Read Encrypted"},
	{PermReadEncryptedMITM, "Read Encrypted MITM"},
	{PermWrite, "Write"},
	{PermWriteEncrypted, "Write Encrypted"},
	{PermWriteEncryptedMITM, "Write Encrypted MITM"},
	{PermWriteSigned, "Write Signed"},
	{PermWriteSignedMITM, "Write Signed MITM"},
}

func (p Permission) Has(f Permission) bool { return p&f != 0 }

// Known strips bits outside the defined flags.
func (p Permission) Known() Permission {
	var out Permission
	for _, pn := range permissionNames {
		out |= p & pn.flag
	}
	return out
}

func (p Permission) Names() []string {
	var out []string
	for _, pn := range permissionNames {
		if p.Has(pn.flag) {
			out = append(out, pn.name)
		}
	}
	return out
}

func (p Permission) String() string { return strings.Join(p.Names(), ", ") }

// WriteType is the write procedure a client uses by default.
type WriteType int

const (
	WriteUnknown    WriteType = 0
	WriteNoResponse WriteType = 1
	WriteDefault    WriteType = 2
	WriteSigned     WriteType = 4
)

func (w WriteType) String() string {
	switch w {
	case WriteDefault:
		return "Default"
	case WriteNoResponse:
		return "No Response"
	case WriteSigned:
		return "Signed"
	default:
		return "Unknown"
	}
}
