package rardecode

// Properties is the decoded form of a file block's two-byte compression
// properties field.
type Properties struct {
	WindowSize int
	Solid      bool
	V7         bool
}

// DecodeProperties unpacks the on-disk properties block: byte 0 is pow
// (0..31), byte 1 packs frac (top 5 bits), v7 (bit 1), and solid (bit 0).
//
// Window size is (frac+32) << (pow+12). The encoding is rejected outright
// when it would describe a dictionary larger than 2^31 bytes, per the
// rule pow + ((frac+31)>>5) > 14.
func DecodeProperties(props [2]byte) (Properties, error) {
	pow := int(props[0])
	frac := int(props[1] >> 3)
	v7 := props[1]&0x02 != 0
	solid := props[1]&0x01 != 0

	if pow+((frac+31)>>5) > 14 {
		return Properties{}, ErrWindowTooLarge
	}

	windowSize := (frac + 32) << uint(pow+12)

	return Properties{
		WindowSize: windowSize,
		Solid:      solid,
		V7:         v7,
	}, nil
}
