package lamp

import "context"

// ScanResult is one advertisement heard by a Radio.
type ScanResult struct {
	// Address is the sender's radio address, 6 bytes for BLE-style radios
	Address []byte

	// RSSI is the received signal strength in dBm
	RSSI int

	// Data is the raw advertisement frame
	Data []byte
}

// Radio is the advertising transport a lamp talks through.
type Radio interface {
	// Address returns this radio's own address
	Address() []byte

	// Advertise replaces the frame this radio repeatedly transmits
	Advertise(ctx context.Context, frame []byte) error

	// Scan calls handler for every advertisement heard until ctx is done.
	// The radio's own advertisements are not reported.
	Scan(ctx context.Context, handler func(ScanResult)) error

	Close() error
}
