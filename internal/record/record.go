// Package record defines the fixed-length record shared by the HP and HT
// storage engines, and the byte-level encoding both use to pack it into a
// block.
package record

import (
	"bytes"
	"fmt"

	"github.com/blockdb-go/blockdb/internal/utils"
)

// Field widths, in bytes. Id is a native 32-bit integer; the string fields
// are fixed-width byte arrays, NUL-padded on the right the way a C
// char[N] would be.
const (
	IDSize      = 4
	NameSize    = 15
	SurnameSize = 20
	CitySize    = 20

	// Size is the total on-disk width of one Record.
	Size = IDSize + NameSize + SurnameSize + CitySize
)

// Record is the fixed layout stored by HP and HT: id, name, surname, city.
type Record struct {
	ID      int32
	Name    string
	Surname string
	City    string
}

// New truncates name/surname/city to their field widths (minus the
// terminator) and returns a Record ready to encode.
func New(id int32, name, surname, city string) Record {
	return Record{
		ID:      id,
		Name:    truncate(name, NameSize),
		Surname: truncate(surname, SurnameSize),
		City:    truncate(city, CitySize),
	}
}

func truncate(s string, width int) string {
	if len(s) > width-1 {
		return s[:width-1]
	}
	return s
}

// Encode writes the record into buf[0:Size].
func (r Record) Encode(buf []byte) {
	utils.PutInt32(buf[0:4], r.ID)
	putFixedString(buf[4:4+NameSize], r.Name)
	putFixedString(buf[4+NameSize:4+NameSize+SurnameSize], r.Surname)
	putFixedString(buf[4+NameSize+SurnameSize:Size], r.City)
}

// Decode reads a record from buf[0:Size].
func Decode(buf []byte) Record {
	return Record{
		ID:      utils.Int32(buf[0:4]),
		Name:    readFixedString(buf[4 : 4+NameSize]),
		Surname: readFixedString(buf[4+NameSize : 4+NameSize+SurnameSize]),
		City:    readFixedString(buf[4+NameSize+SurnameSize : Size]),
	}
}

func putFixedString(buf []byte, s string) {
	n := copy(buf, s)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
}

func readFixedString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}

// String renders the record the way the original engines' print routines
// did: `id,"name","surname","city"`.
func (r Record) String() string {
	return fmt.Sprintf("%d,%q,%q,%q", r.ID, r.Name, r.Surname, r.City)
}

// Attr names the four fields PrintAllEntries can filter on.
type Attr string

const (
	AttrID      Attr = "id"
	AttrName    Attr = "name"
	AttrSurname Attr = "surname"
	AttrCity    Attr = "city"
)

// FieldWindow returns the offset of attr within an encoded Record and the
// number of bytes to compare when matching a query value: 4 bytes for id,
// strlen(value)+1 (including the terminator) for strings, clipped to the
// field's width.
func FieldWindow(attr Attr, value string) (offset, length int, err error) {
	clip := func(width int) int {
		n := len(value) + 1
		if n > width {
			return width
		}
		return n
	}

	switch attr {
	case AttrID:
		return 0, IDSize, nil
	case AttrName:
		return IDSize, clip(NameSize), nil
	case AttrSurname:
		return IDSize + NameSize, clip(SurnameSize), nil
	case AttrCity:
		return IDSize + NameSize + SurnameSize, clip(CitySize), nil
	default:
		return 0, 0, fmt.Errorf("invalid attribute name: %q", attr)
	}
}
