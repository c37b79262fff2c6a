package device

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	// ScannerName identifies the producer in exported documents.
	ScannerName = "NullSec Bluetooth v1.0.0"
	// ScanTimeLayout formats scan_time in local time.
	ScanTimeLayout = "2006-01-02 15:04:05"
)

// ExportDevice is one entry of an export document.
type ExportDevice struct {
	Address       string   `json:"address"`
	Name          string   `json:"name"`
	RSSI          int      `json:"rssi"`
	Type          string   `json:"type"`
	Class         string   `json:"class"`
	Manufacturer  string   `json:"manufacturer"`
	IsBLE         bool     `json:"is_ble"`
	IsConnectable bool     `json:"is_connectable"`
	IsBonded      bool     `json:"is_bonded"`
	Services      []string `json:"services"`
}

// ExportDocument is the exported scan result. DeviceCount always equals len(Devices).
type ExportDocument struct {
	ScanTime    string         `json:"scan_time"`
	Scanner     string         `json:"scanner"`
	DeviceCount int            `json:"device_count"`
	Devices     []ExportDevice `json:"devices"`
}

// Export builds the document for records, keeping their order.
func Export(records []Record, now time.Time) ExportDocument {
	doc := ExportDocument{
		ScanTime: now.Local().Format(ScanTimeLayout),
		Scanner:  ScannerName,
		Devices:  make([]ExportDevice, 0, len(records)),
	}
	for _, r := range records {
		services := r.Services
		if services == nil {
			services = []string{}
		}
		doc.Devices = append(doc.Devices, ExportDevice{
			Address:       r.Address,
			Name:          r.Name,
			RSSI:          r.RSSI,
			Type:          r.Type.String(),
			Class:         r.ClassLabel,
			Manufacturer:  r.Manufacturer,
			IsBLE:         r.BLE,
			IsConnectable: r.Connectable,
			IsBonded:      r.Bonded(),
			Services:      services,
		})
	}
	doc.DeviceCount = len(doc.Devices)
	return doc
}

// WriteExport encodes the export document as indented JSON.
func WriteExport(w io.Writer, records []Record, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Export(records, now)); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// ExportFileName is the default file name for a scan exported at now.
func ExportFileName(now time.Time) string {
	return "bluescout_scan_" + now.Local().Format("20060102_150405") + ".json"
}

// SaveExport writes the export document to path, creating parent directories.
func SaveExport(path string, records []Record, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := WriteExport(f, records, now); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
