// Package edid reads the identification block of a display.
//
// Displays answer on I²C address 0x50 of the same bus that carries DDC/CI.
// The block starts with a fixed 8-byte header:
//
//	00 ff ff ff ff ff ff 00
//
// followed by the manufacturer ID, product code, serial number, manufacture
// date and EDID version. The EEPROM read position is unknown when the bus is
// opened, so two blocks worth of bytes are read and the header is searched.
//
// This package provides:
//
// - Parse: decode a block found anywhere in a buffer
// - Read: read and decode the block of the display on a bus
// - Scan: probe every registered I²C bus for a display
//
// Example usage:
//
//	if _, err := host.Init(); err != nil {
//		log.Fatal(err)
//	}
//	displays, err := edid.Scan(nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, d := range displays {
//		fmt.Printf("%s: %s %s\n", d.Bus, d.Info.Manufacturer, d.Info.Name)
//	}
package edid
