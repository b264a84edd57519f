//go:build js && wasm

package store

import (
	"fmt"
	"syscall/js"
)

// LocalStorage stores slots in the browser's window.localStorage.
// Values are kept as strings; the JS event loop serializes access.
type LocalStorage struct {
	ls js.Value
}

// NewLocalStorage binds to window.localStorage.
func NewLocalStorage() (*LocalStorage, error) {
	ls := js.Global().Get("localStorage")
	if ls.IsUndefined() || ls.IsNull() {
		return nil, fmt.Errorf("localStorage unavailable")
	}
	return &LocalStorage{ls: ls}, nil
}

// Get reads key from localStorage.
func (s *LocalStorage) Get(key string) (value []byte, ok bool, err error) {
	defer recoverJS(&err)
	v := s.ls.Call("getItem", key)
	if v.IsNull() {
		return nil, false, nil
	}
	return []byte(v.String()), true, nil
}

// Put writes key. Quota errors surface as a Go error.
func (s *LocalStorage) Put(key string, value []byte) (err error) {
	defer recoverJS(&err)
	s.ls.Call("setItem", key, string(value))
	return nil
}

// Delete removes key.
func (s *LocalStorage) Delete(key string) (err error) {
	defer recoverJS(&err)
	s.ls.Call("removeItem", key)
	return nil
}

// Close is a no-op.
func (s *LocalStorage) Close() error { return nil }

// recoverJS converts a thrown JS exception into an error.
func recoverJS(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("localStorage: %v", r)
	}
}

var _ Storer = (*LocalStorage)(nil)
