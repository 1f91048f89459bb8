package aotsql

import (
	"fmt"
	"strconv"
	"strings"
)

// TagKey is the struct tag key read on parameter and result members.
const TagKey = "db"

// Tag holds the options of a `db` struct tag:
//
//	ID    int    `db:"id"`
//	Name  string `db:"name,size=50,type=AnsiString"`
//	Total int64  `db:"total,dir=out"`
//	Price string `db:"price,precision=10,scale=2,type=Decimal"`
//	Temp  string `db:"-"`
type Tag struct {
	Name      string
	Skip      bool
	Inline    bool
	Direction Direction
	Size      int
	Precision int
	Scale     int
	DbType    DbType
	// HasDbType is set when the type option overrides the default mapping.
	HasDbType bool
}

// ParseTag parses the value of a `db` struct tag.
func ParseTag(value string) (Tag, error) {
	name, opts, _ := strings.Cut(value, ",")
	t := Tag{Name: strings.TrimSpace(name)}
	if t.Name == "-" && opts == "" {
		return Tag{Skip: true}, nil
	}
	for _, opt := range strings.Split(opts, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		k, v, _ := strings.Cut(opt, "=")
		var err error
		switch strings.ToLower(k) {
		case "inline":
			t.Inline = true
		case "dir", "direction":
			t.Direction, err = ParseDirection(v)
		case "out", "inout", "return":
			t.Direction, err = ParseDirection(k)
		case "size":
			t.Size, err = tagInt(k, v)
		case "precision":
			t.Precision, err = tagInt(k, v)
		case "scale":
			t.Scale, err = tagInt(k, v)
		case "type":
			t.DbType, err = ParseDbType(v)
			t.HasDbType = err == nil
		default:
			err = fmt.Errorf("aotsql: unknown tag option %q", k)
		}
		if err != nil {
			return Tag{}, err
		}
	}
	return t, nil
}

func tagInt(k, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("aotsql: tag option %s=%q is not a non-negative integer", k, v)
	}
	return n, nil
}
