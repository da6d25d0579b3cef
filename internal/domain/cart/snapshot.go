package cart

import (
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/taziri/grocery-kart/internal/domain/unit"
)

// FileStore persists cart snapshots as a JSON file, the service-side
// rendition of the browser's local storage. The snapshot is rewritten on
// every cart mutation, so encoding uses jx directly rather than reflection.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save encodes the lines and replaces the snapshot file.
func (s *FileStore) Save(lines []Line) error {
	data := encodeLines(lines)
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrap(err, "write cart snapshot")
	}
	return nil
}

// Load reads and decodes the snapshot. A missing file is an empty cart.
func (s *FileStore) Load() ([]Line, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read cart snapshot")
	}
	lines, err := decodeLines(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode cart snapshot")
	}
	return lines, nil
}

// Clear removes the snapshot file if present.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove cart snapshot")
	}
	return nil
}

func encodeLines(lines []Line) []byte {
	var e jx.Encoder
	e.ArrStart()
	for i := range lines {
		l := &lines[i]
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("image")
		e.Str(l.Image)
		e.FieldStart("unit")
		e.Str(string(l.Unit))
		e.FieldStart("basePrice")
		e.Str(l.BasePrice.String())
		e.FieldStart("quantity")
		e.Str(l.Quantity.String())
		e.FieldStart("display")
		e.Str(l.Display)
		e.FieldStart("price")
		e.Str(l.Price.String())
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeLines(data []byte) ([]Line, error) {
	var lines []Line
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		var l Line
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "productId":
				return decodeStr(d, &l.ProductID)
			case "name":
				return decodeStr(d, &l.Name)
			case "image":
				return decodeStr(d, &l.Image)
			case "unit":
				s, err := d.Str()
				if err != nil {
					return err
				}
				l.Unit = unit.Kind(s)
				return nil
			case "basePrice":
				return decodeDecimal(d, &l.BasePrice)
			case "quantity":
				return decodeDecimal(d, &l.Quantity)
			case "display":
				return decodeStr(d, &l.Display)
			case "price":
				return decodeDecimal(d, &l.Price)
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		if !l.Unit.Valid() {
			return errors.Errorf("snapshot line %q: unknown unit %q", l.ProductID, l.Unit)
		}
		lines = append(lines, l)
		return nil
	}); err != nil {
		return nil, err
	}
	return lines, nil
}

func decodeStr(d *jx.Decoder, dst *string) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

func decodeDecimal(d *jx.Decoder, dst *decimal.Decimal) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return errors.Wrap(err, "parse decimal")
	}
	*dst = v
	return nil
}
