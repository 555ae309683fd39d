package testing

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/hsanjuan/go-ndef"
)

// RF error reported in CORE_INTERFACE_ERROR_NTF when the tag does not answer
const statusRFTimeout = 0xB2

// Tag command codes
const (
	t2tRead  = 0x30
	t2tWrite = 0xA2
	t2tACK   = 0x0A
	t2tNAK   = 0x00
)

// VirtualTag simulates a Type 2 tag (NTAG213 layout) behind the Frame RF
// interface. Install Handle as the controller handler once the tag is
// activated.
type VirtualTag struct {
	UID     []byte
	Memory  []byte // 4-byte pages
	Present bool
	mu      sync.Mutex
}

// NewVirtualNTAG213 creates a virtual NTAG213 holding the NDEF text
// "Hello World"
func NewVirtualNTAG213(uid []byte) *VirtualTag {
	if uid == nil {
		uid = TestNTAG213UID
	}

	tag := &VirtualTag{
		UID:     uid,
		Memory:  make([]byte, 45*4),
		Present: true,
	}
	tag.initNTAG213Memory()
	if err := tag.SetNDEFText("Hello World"); err != nil {
		panic(err)
	}
	return tag
}

// NewBlankNTAG213 creates a virtual NTAG213 with a capability container and
// an all-zero data area
func NewBlankNTAG213(uid []byte) *VirtualTag {
	if uid == nil {
		uid = TestNTAG213UID
	}

	tag := &VirtualTag{
		UID:     uid,
		Memory:  make([]byte, 45*4),
		Present: true,
	}
	tag.initNTAG213Memory()
	return tag
}

// GetUIDString returns the UID as a hex string
func (v *VirtualTag) GetUIDString() string {
	return hex.EncodeToString(v.UID)
}

// Handle answers T2T READ and WRITE data packets. An absent tag makes the
// controller report an RF timeout.
func (v *VirtualTag) Handle(frame []byte) [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(frame) < 4 || frame[0]&0xE0 != 0 {
		return nil
	}
	if !v.Present {
		return [][]byte{Ntf(GIDCore, 0x08, statusRFTimeout, frame[0]&0x0F)}
	}

	cmd := frame[3:]
	switch {
	case cmd[0] == t2tRead && len(cmd) == 2:
		return [][]byte{Data(0, append(v.readPages(int(cmd[1])), 0x00)...)}
	case cmd[0] == t2tWrite && len(cmd) == 6:
		if err := v.writePage(int(cmd[1]), cmd[2:6]); err != nil {
			return [][]byte{Data(0, t2tNAK, 0x00)}
		}
		return [][]byte{Data(0, t2tACK, 0x00)}
	default:
		return [][]byte{Data(0, t2tNAK, 0x00)}
	}
}

// SetNDEFText stores a single text record as an NDEF message TLV
func (v *VirtualTag) SetNDEFText(text string) error {
	raw, err := ndef.NewTextMessage(text, "en").Marshal()
	if err != nil {
		return fmt.Errorf("marshal NDEF: %w", err)
	}
	if len(raw) > 0xFE {
		return fmt.Errorf("NDEF message too large: %d bytes", len(raw))
	}

	tlv := []byte{0x03, byte(len(raw))}
	tlv = append(tlv, raw...)
	tlv = append(tlv, 0xFE)
	if len(tlv) > 36*4 {
		return fmt.Errorf("NDEF data too large for NTAG213")
	}
	copy(v.Memory[4*4:], tlv)
	return nil
}

// Page returns a copy of one 4-byte page
func (v *VirtualTag) Page(page int) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.Memory[page*4:page*4+4]...)
}

// Remove takes the tag out of the field
func (v *VirtualTag) Remove() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Present = false
}

// Insert puts the tag back in the field
func (v *VirtualTag) Insert() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Present = true
}

func (v *VirtualTag) initNTAG213Memory() {
	// Pages 0-1: UID and check bytes
	copy(v.Memory[0:], v.UID[:3])
	v.Memory[3] = 0x88 ^ v.UID[0] ^ v.UID[1] ^ v.UID[2]
	copy(v.Memory[4:], v.UID[3:])
	// Page 3: capability container, 144 bytes of NDEF memory
	copy(v.Memory[12:], []byte{0xE1, 0x10, 0x12, 0x00})
}

// readPages returns four pages starting at page, rolling over at the end of
// memory like the READ command does.
func (v *VirtualTag) readPages(page int) []byte {
	pages := len(v.Memory) / 4
	out := make([]byte, 0, 16)
	for i := range 4 {
		p := (page + i) % pages
		out = append(out, v.Memory[p*4:p*4+4]...)
	}
	return out
}

func (v *VirtualTag) writePage(page int, data []byte) error {
	// Pages 0-3 are factory locked, 40-44 hold configuration
	if page < 4 || page >= 40 {
		return fmt.Errorf("page %d is write protected", page)
	}
	copy(v.Memory[page*4:], data)
	return nil
}

// VirtualType4Tag simulates a Type 4 tag exposing an NDEF application
// behind the ISO-DEP RF interface.
type VirtualType4Tag struct {
	UID      []byte
	ndefFile []byte
	selected []byte
	mu       sync.Mutex
	Present  bool
}

var (
	t4tNDEFApp  = []byte{0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01}
	t4tCCFile   = []byte{0xE1, 0x03}
	t4tNDEFFile = []byte{0xE1, 0x04}
	swOK        = []byte{0x90, 0x00}
	swNotFound  = []byte{0x6A, 0x82}
	swWrongP1P2 = []byte{0x6B, 0x00}
)

// NewVirtualType4Tag creates a Type 4 tag holding a URI record
func NewVirtualType4Tag(uri string) *VirtualType4Tag {
	raw, err := ndef.NewURIMessage(uri).Marshal()
	if err != nil {
		panic(err)
	}
	file := []byte{byte(len(raw) >> 8), byte(len(raw))}
	return &VirtualType4Tag{
		UID:      TestISODEPUID,
		ndefFile: append(file, raw...),
		Present:  true,
	}
}

// Remove takes the tag out of the field
func (v *VirtualType4Tag) Remove() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Present = false
}

// Handle answers SELECT and READ BINARY APDUs sent as data packets
func (v *VirtualType4Tag) Handle(frame []byte) [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(frame) < 4 || frame[0]&0xE0 != 0 {
		return nil
	}
	if !v.Present {
		return [][]byte{Ntf(GIDCore, 0x08, statusRFTimeout, frame[0]&0x0F)}
	}
	return [][]byte{Data(0, v.apdu(frame[3:])...)}
}

func (v *VirtualType4Tag) apdu(c []byte) []byte {
	if len(c) < 4 {
		return swWrongP1P2
	}
	ins, p1, p2 := c[1], c[2], c[3]
	switch ins {
	case 0xA4: // SELECT
		if len(c) < 5 || len(c) < 5+int(c[4]) {
			return swWrongP1P2
		}
		id := c[5 : 5+int(c[4])]
		switch {
		case p1 == 0x04 && string(id) == string(t4tNDEFApp):
			v.selected = nil
			return swOK
		case p1 == 0x00 && (string(id) == string(t4tCCFile) || string(id) == string(t4tNDEFFile)):
			v.selected = append([]byte(nil), id...)
			return swOK
		default:
			return swNotFound
		}
	case 0xB0: // READ BINARY
		var file []byte
		switch string(v.selected) {
		case string(t4tCCFile):
			file = v.capabilityContainer()
		case string(t4tNDEFFile):
			file = v.ndefFile
		default:
			return swNotFound
		}
		off := int(p1)<<8 | int(p2)
		n := 0
		if len(c) > 4 {
			n = int(c[4])
		}
		if off > len(file) {
			return swWrongP1P2
		}
		end := min(off+n, len(file))
		return append(append([]byte(nil), file[off:end]...), swOK...)
	default:
		return []byte{0x6D, 0x00}
	}
}

func (v *VirtualType4Tag) capabilityContainer() []byte {
	return []byte{
		0x00, 0x0F, // CC length
		0x20,       // mapping version 2.0
		0x00, 0x3B, // MLe
		0x00, 0x34, // MLc
		0x04, 0x06, // NDEF file control TLV
		0xE1, 0x04, // file id
		0x08, 0x00, // max file size
		0x00, 0xFF, // read access, write denied
	}
}
