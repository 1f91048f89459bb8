package accessor

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

var errConvert = errors.New("accessor: unsupported conversion")

// assign stores src into dst following the conversions database/sql
// applies when scanning: numeric widening and narrowing with overflow
// checks, text to number and bool parsing, and sql.Scanner targets.
func assign(dst reflect.Value, src any) error {
	if src == nil {
		dst.SetZero()
		return nil
	}
	if dst.CanAddr() {
		if s, ok := dst.Addr().Interface().(sql.Scanner); ok {
			return s.Scan(src)
		}
	}
	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	if b, ok := src.([]byte); ok {
		if dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.Uint8 {
			dst.SetBytes(append([]byte(nil), b...))
			return nil
		}
		src, sv = string(b), reflect.ValueOf(string(b))
	}
	switch dst.Kind() {
	case reflect.Bool:
		switch s := src.(type) {
		case string:
			v, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			dst.SetBool(v)
			return nil
		case int64:
			dst.SetBool(s != 0)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := toInt(sv)
		if err != nil {
			return err
		}
		if dst.OverflowInt(v) {
			return fmt.Errorf("accessor: value %d overflows %s", v, dst.Type())
		}
		dst.SetInt(v)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := toInt(sv)
		if err != nil {
			return err
		}
		if v < 0 || dst.OverflowUint(uint64(v)) {
			return fmt.Errorf("accessor: value %d overflows %s", v, dst.Type())
		}
		dst.SetUint(uint64(v))
		return nil
	case reflect.Float32, reflect.Float64:
		switch sv.Kind() {
		case reflect.Float32, reflect.Float64:
			dst.SetFloat(sv.Float())
			return nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetFloat(float64(sv.Int()))
			return nil
		case reflect.String:
			v, err := strconv.ParseFloat(sv.String(), dst.Type().Bits())
			if err != nil {
				return err
			}
			dst.SetFloat(v)
			return nil
		}
	case reflect.String:
		switch s := src.(type) {
		case string:
			dst.SetString(s)
			return nil
		case time.Time:
			dst.SetString(s.Format(time.RFC3339Nano))
			return nil
		}
		switch sv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetString(strconv.FormatInt(sv.Int(), 10))
			return nil
		case reflect.Float32, reflect.Float64:
			dst.SetString(strconv.FormatFloat(sv.Float(), 'g', -1, 64))
			return nil
		case reflect.Bool:
			dst.SetString(strconv.FormatBool(sv.Bool()))
			return nil
		}
	}
	if sv.Kind() != reflect.String && sv.Type().ConvertibleTo(dst.Type()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return errConvert
}

func toInt(sv reflect.Value) (int64, error) {
	switch sv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return sv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(sv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := sv.Float()
		if f != float64(int64(f)) {
			return 0, fmt.Errorf("accessor: %v is not integral", f)
		}
		return int64(f), nil
	case reflect.Bool:
		if sv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.String:
		return strconv.ParseInt(sv.String(), 10, 64)
	}
	return 0, errConvert
}
