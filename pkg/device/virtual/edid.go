package virtual

import (
	"bytes"
	"encoding/binary"
)

// buildEDID returns a minimal EDID 1.4 base block that names the monitor.
func buildEDID(name string, mmWidth, mmHeight uint32) []byte {
	edid := make([]byte, 128)
	copy(edid, []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00})

	// Manufacturer "VKM" as three 5-bit letters.
	mfg := uint16('V'-'@')<<10 | uint16('K'-'@')<<5 | uint16('M'-'@')
	binary.BigEndian.PutUint16(edid[8:], mfg)
	binary.LittleEndian.PutUint16(edid[10:], 0x0001)
	edid[16] = 1
	edid[17] = 32
	edid[18] = 1
	edid[19] = 4
	edid[21] = byte(mmWidth / 10)
	edid[22] = byte(mmHeight / 10)

	desc := edid[108:126]
	desc[3] = 0xfc
	text := bytes.Repeat([]byte{' '}, 13)
	n := copy(text, name)
	if n < len(text) {
		text[n] = '\n'
	}
	copy(desc[5:], text)

	var sum byte
	for _, b := range edid[:127] {
		sum += b
	}
	edid[127] = -sum
	return edid
}
