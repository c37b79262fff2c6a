package bluez

import "bluescout/gatt"

var propertyFlags = map[string]gatt.Property{
	"broadcast":                   gatt.PropBroadcast,
	"read":                        gatt.PropRead,
	"write-without-response":      gatt.PropWriteNoResponse,
	"write":                       gatt.PropWrite,
	"notify":                      gatt.PropNotify,
	"indicate":                    gatt.PropIndicate,
	"authenticated-signed-writes": gatt.PropSignedWrite,
	"extended-properties":         gatt.PropExtended,
}

var permissionFlags = map[string]gatt.Permission{
	"encrypt-read":                gatt.PermReadEncrypted,
	"encrypt-authenticated-read":  gatt.PermReadEncryptedMITM,
	"secure-read":                 gatt.PermReadEncryptedMITM,
	"encrypt-write":               gatt.PermWriteEncrypted,
	"encrypt-authenticated-write": gatt.PermWriteEncryptedMITM,
	"secure-write":                gatt.PermWriteEncryptedMITM,
}

// MapFlags converts the Flags of a GattCharacteristic1 into property and
// permission bitmasks and the write type a client would use. Unknown flags
// are ignored.
func MapFlags(flags []string) (gatt.Property, gatt.Permission, gatt.WriteType) {
	var props gatt.Property
	var perms gatt.Permission
	for _, f := range flags {
		props |= propertyFlags[f]
		perms |= permissionFlags[f]
	}

	wt := gatt.WriteUnknown
	switch {
	case props.Has(gatt.PropWrite):
		wt = gatt.WriteDefault
	case props.Has(gatt.PropWriteNoResponse):
		wt = gatt.WriteNoResponse
	case props.Has(gatt.PropSignedWrite):
		wt = gatt.WriteSigned
	}
	return props, perms, wt
}
