// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/webhost/lib/strview"
)

// DefaultSysfsRoot is where adapters are enumerated from.
const DefaultSysfsRoot = "/sys"

// Adapter is one DRM card.
type Adapter struct {
	// Card is the DRM device name (card0, card1, ...).
	Card string

	// Major and Minor are the device numbers. Together they identify
	// the adapter for the lifetime of the boot, and an adapter hint
	// "low;high" names them.
	Major uint32
	Minor uint32

	Driver   string
	Vendor   string
	DeviceID string
	PCISlot  string
}

func (a Adapter) String() string {
	if a.Card == "" {
		return "default"
	}
	return fmt.Sprintf("%s (%d:%d %s %s %s)", a.Card, a.Major, a.Minor, a.Vendor, a.DeviceID, a.Driver)
}

// EnumerateAdapters lists the DRM cards under sysRoot in directory
// order. A missing DRM class yields no adapters and no error.
func EnumerateAdapters(sysRoot string) ([]Adapter, error) {
	drmBase := filepath.Join(sysRoot, "class/drm")
	entries, err := os.ReadDir(drmBase)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", drmBase, err)
	}

	var adapters []Adapter
	for _, entry := range entries {
		name := entry.Name()
		if !isCardDevice(name) {
			continue
		}
		cardPath := filepath.Join(drmBase, name)
		major, minor, ok := readDeviceNumber(cardPath)
		if !ok {
			continue
		}
		devicePath := filepath.Join(cardPath, "device")
		adapter := Adapter{
			Card:   name,
			Major:  major,
			Minor:  minor,
			Driver: readDriverName(devicePath),
		}
		adapter.Vendor, adapter.DeviceID, adapter.PCISlot = parsePCIUevent(devicePath)
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

// ParseAdapterHint parses "low;high". ok is false for an empty or
// malformed hint.
func ParseAdapterHint(hint string) (low, high uint32, ok bool) {
	first, second := strview.FromString(hint).Trim().Pair(';')
	first, second = first.Trim(), second.Trim()
	if first.Empty() || second.Empty() {
		return 0, 0, false
	}
	const missing = 1 << 63
	lowValue := first.Uint(missing)
	highValue := second.Uint(missing)
	if lowValue > 0xFFFFFFFF || highValue > 0xFFFFFFFF {
		return 0, 0, false
	}
	return uint32(lowValue), uint32(highValue), true
}

// SelectAdapter returns the adapter hint names. Without a usable hint,
// or when nothing matches, it returns the zero Adapter (the default
// device) and false.
func SelectAdapter(adapters []Adapter, hint string) (Adapter, bool) {
	low, high, ok := ParseAdapterHint(hint)
	if !ok {
		return Adapter{}, false
	}
	for _, adapter := range adapters {
		if adapter.Major == low && adapter.Minor == high {
			return adapter, true
		}
	}
	return Adapter{}, false
}

// isCardDevice matches card0, card1, ... but not connectors
// (card0-DP-1) or render nodes (renderD128).
func isCardDevice(name string) bool {
	suffix, ok := strings.CutPrefix(name, "card")
	if !ok || suffix == "" {
		return false
	}
	for _, character := range suffix {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}

// readDeviceNumber reads the "major:minor" dev file of a card.
func readDeviceNumber(cardPath string) (major, minor uint32, ok bool) {
	data, err := os.ReadFile(filepath.Join(cardPath, "dev"))
	if err != nil {
		return 0, 0, false
	}
	first, second := strview.Of(data).Trim().Pair(':')
	const missing = 1 << 63
	majorValue, minorValue := first.Uint(missing), second.Uint(missing)
	if majorValue == missing || minorValue == missing {
		return 0, 0, false
	}
	return uint32(majorValue), uint32(minorValue), true
}

func readDriverName(devicePath string) string {
	link, err := os.Readlink(filepath.Join(devicePath, "driver"))
	if err != nil {
		return ""
	}
	return filepath.Base(link)
}

// parsePCIUevent extracts the vendor name, device id and PCI slot from
// a uevent file holding lines like
//
//	PCI_ID=1002:744A
//	PCI_SLOT_NAME=0000:c3:00.0
func parsePCIUevent(devicePath string) (vendor, deviceID, pciSlot string) {
	data, err := os.ReadFile(filepath.Join(devicePath, "uevent"))
	if err != nil {
		return "", "", ""
	}
	var vendorID string
	for _, line := range strview.Of(data).Split('\n', true, true, 0) {
		key, value := line.Pair('=')
		switch key.String() {
		case "PCI_ID":
			ids := strings.SplitN(value.String(), ":", 2)
			if len(ids) == 2 {
				vendorID = strings.ToLower(ids[0])
				deviceID = "0x" + strings.ToLower(ids[1])
			}
		case "PCI_SLOT_NAME":
			pciSlot = value.String()
		}
	}
	return pciVendorName(vendorID), deviceID, pciSlot
}

func pciVendorName(vendorID string) string {
	switch vendorID {
	case "1002":
		return "AMD"
	case "10de":
		return "NVIDIA"
	case "8086":
		return "Intel"
	case "":
		return ""
	default:
		return "0x" + vendorID
	}
}
