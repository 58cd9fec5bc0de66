package util

import (
	"io"
	"reflect"
)

// CloseWithErr closes c and logs a failure under name. Nil closers,
// including typed nil pointers, are ignored.
func CloseWithErr(c io.Closer, name string) {
	if c == nil {
		return
	}
	if v := reflect.ValueOf(c); v.Kind() == reflect.Ptr && v.IsNil() {
		return
	}
	err := c.Close()
	if err == nil {
		return
	}
	if name == "" {
		name = "resource"
	}
	Warnf("close %s: %v", name, err)
}
