package classify

import (
	"slices"
	"strings"
)

// UnknownManufacturer is returned when no table matches.
const UnknownManufacturer = "Unknown"

// ouiVendors maps the first three address octets (upper-case hex, no separators) to a
// vendor.
var ouiVendors = map[string]string{
	"001A7D": "Apple",
	"D0034B": "Apple",
	"F40F24": "Apple",
	"ACBC32": "Apple",
	"78CA39": "Apple",
	"94652D": "Samsung",
	"CC07AB": "Samsung",
	"8425DB": "Samsung",
	"086698": "Google",
	"546009": "Google",
	"F80FF9": "Google",
	"64A2F9": "OnePlus",
	"50C830": "Xiaomi",
	"7811DC": "Xiaomi",
	"001EAE": "Sony",
	"045D4B": "Sony",
	"B87826": "Bose",
	"000C8A": "Bose",
	"F013C3": "JBL",
	"88C9D0": "Harman",
}

// companies maps Bluetooth SIG company identifiers found at the start of
// manufacturer-specific advertisement data.
var companies = map[uint16]string{
	0x0006: "Microsoft",
	0x000F: "Broadcom",
	76:     "Apple",
	117:    "Samsung",
	224:    "Google",
	301:    "Bose",
	343:    "Xiaomi",
}

// OUI returns the organizationally unique identifier of a hardware address as six
// upper-case hex digits, or "" when the address is too short.
func OUI(addr string) string {
	var b strings.Builder
	for _, r := range addr {
		if r == ':' || r == '-' || r == '.' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == 6 {
			return strings.ToUpper(b.String())
		}
	}
	return ""
}

// ManufacturerByAddress looks up the vendor of a hardware address by its OUI.
func ManufacturerByAddress(addr string) string {
	if v, ok := ouiVendors[OUI(addr)]; ok {
		return v
	}
	return UnknownManufacturer
}

// ManufacturerByCompanyID looks up a 16-bit company identifier.
func ManufacturerByCompanyID(id uint16) string {
	if v, ok := companies[id]; ok {
		return v
	}
	return UnknownManufacturer
}

// CompanyID decodes the little-endian company identifier leading raw
// manufacturer-specific data.
func CompanyID(data []byte) (uint16, bool) {
	if len(data) < 2 {
		return 0, false
	}
	return uint16(data[0]) | uint16(data[1])<<8, true
}

// Manufacturer tries the address OUI first, then the company identifiers carried in
// manufacturer data in ascending order.
func Manufacturer(addr string, mfg map[uint16][]byte) string {
	if v := ManufacturerByAddress(addr); v != UnknownManufacturer {
		return v
	}
	ids := make([]uint16, 0, len(mfg))
	for id := range mfg {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if v := ManufacturerByCompanyID(id); v != UnknownManufacturer {
			return v
		}
	}
	return UnknownManufacturer
}
