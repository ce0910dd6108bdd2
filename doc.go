// Package ddcci controls a monitor over DDC/CI.
//
// DDC/CI (Display Data Channel / Command Interface) runs on the I²C bus of the
// video connector. The display answers on 7-bit address 0x37; its settings are
// exposed as VCP (Virtual Control Panel) codes defined by MCCS: brightness is
// 0x10, contrast 0x12, and so on.
//
// # Message Format
//
// A message written to the display:
//
//	6e 51 82 01 10 ac
//	│  │  │  │  │  └─ checksum
//	│  │  │  │  └──── VCP code (brightness)
//	│  │  │  └─────── opcode (get VCP feature)
//	│  │  └────────── length of opcode and arguments, 0x80 set
//	│  └───────────── source address (host)
//	└──────────────── destination address (display, write)
//
// A reply read from the display starts at its source byte (0x6e); the 0x6f
// address byte is emitted by the bus controller and never reaches software.
//
// The checksum is the XOR of the whole message including the leading address
// byte. For replies the address byte is replaced by 0x50, the host write
// address, whatever was seen on the wire. Encode, Decode and Verify implement
// this.
//
// # Timing
//
// The display needs time between messages. Dev enforces a minimum gap before
// every operation, measured from the end of the previous one:
//
//	Get VCP request       40ms
//	Set VCP               50ms, and 50ms before the next message
//	Save settings        200ms, and 200ms before the next message
//	Timing report         40ms, and 50ms before the next message
//	Capabilities request  50ms, and 50ms before the next message
//
// Gaps do not add up: if enough time has already passed, the operation
// proceeds immediately.
//
// # Basic Usage
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		"periph.io/x/conn/v3/i2c/i2creg"
//		"periph.io/x/devices/v3/ddcci"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		if _, err := host.Init(); err != nil {
//			log.Fatal(err)
//		}
//
//		// Open /dev/i2c-4
//		b, err := i2creg.Open("4")
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer b.Close()
//
//		dev, err := ddcci.NewI2C(b, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		ctx := context.Background()
//		r, err := dev.GetVCP(ctx, ddcci.CodeBrightness)
//		if err != nil {
//			log.Fatal(err)
//		}
//		if !r.Validation.OK() {
//			log.Printf("reply %v", r.Validation)
//		}
//		fmt.Printf("brightness %d/%d\n", r.Current, r.Max)
//
//		if err := dev.SetVCP(ctx, ddcci.CodeBrightness, r.Max/2); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// # Errors
//
// Only bus failures are returned as errors; they are never retried, since a
// half written message can confuse the display's parser.
//
// Replies that fail a check (source address, checksum, length, opcode, echo)
// are still decoded. The outcome of every check is in the Validation attached
// to the reply; callers decide whether to trust it. Validation.Err converts a
// failed validation into an error for callers that want to abort.
//
// A VCP code the display does not implement is reported by
// VCPReply.Supported, not as an error.
//
// # Concurrency
//
// The bus carries one transaction at a time. A Dev serializes its callers and
// holds the bus for a whole request/reply exchange. Contexts are checked before
// each transfer and while waiting for the required gap; a transfer in progress
// is never interrupted.
//
// # Debugging
//
// Set Opts.Logger to a zap logger at debug level to dump every transfer.
package ddcci
