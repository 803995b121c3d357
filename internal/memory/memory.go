// Package memory is the storage arena of the interpreter. Every variable,
// temporary, string literal and malloc block is an object addressed by id;
// an address is the object id in the high 32 bits and a byte offset in the
// low 32 bits, so pointer arithmetic never leaves its object silently and
// a stale pointer fails instead of reading someone else's bytes.
package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrNull        = errors.New("null pointer")
	ErrDangling    = errors.New("dangling pointer")
	ErrOutOfBounds = errors.New("out of bounds")
	ErrOutOfMemory = errors.New("out of memory")
	ErrBadFree     = errors.New("free of non-heap pointer")
)

// Addr is a tagged address. The zero Addr is NULL.
type Addr uint64

const Null Addr = 0

func MakeAddr(id uint32, offset int) Addr {
	return Addr(uint64(id)<<32 | uint64(uint32(offset)))
}

func (a Addr) ObjectID() uint32 { return uint32(a >> 32) }

func (a Addr) Offset() int { return int(int32(uint32(a))) }

// Add moves the address by n bytes within its object.
func (a Addr) Add(n int64) Addr {
	return MakeAddr(a.ObjectID(), a.Offset()+int(n))
}

func (a Addr) String() string {
	if a == Null {
		return "NULL"
	}
	return fmt.Sprintf("#%d+%d", a.ObjectID(), a.Offset())
}

type Region int

const (
	Stack Region = iota
	Heap
	Static
)

func (r Region) String() string {
	switch r {
	case Stack:
		return "stack"
	case Heap:
		return "heap"
	}
	return "static"
}

type Object struct {
	ID     uint32
	Data   []byte
	Region Region
	Label  string
	// Owner is the binding the evaluator attached to this storage. It lets
	// a dereferenced pointer find the variable it points into.
	Owner interface{}
}

// Mark is a stack checkpoint returned by Memory.Mark.
type Mark int

type Memory struct {
	objects map[uint32]*Object
	nextID  uint32
	stack   []uint32
	limit   int
	used    [3]int
	stats   Stats
}

// New creates an arena. limit caps the total live bytes; 0 means no cap.
func New(limit int) *Memory {
	return &Memory{
		objects: make(map[uint32]*Object),
		nextID:  1,
		limit:   limit,
	}
}

func (m *Memory) alloc(size int, region Region, label string) (*Object, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative allocation size %d: %w", size, ErrOutOfMemory)
	}
	if m.limit > 0 && m.used[Stack]+m.used[Heap]+m.used[Static]+size > m.limit {
		return nil, ErrOutOfMemory
	}
	if m.nextID == math.MaxUint32 {
		return nil, fmt.Errorf("object ids exhausted: %w", ErrOutOfMemory)
	}
	obj := &Object{ID: m.nextID, Data: make([]byte, size), Region: region, Label: label}
	m.nextID++
	m.objects[obj.ID] = obj
	m.used[region] += size
	m.stats.record(region, size, m.used)
	return obj, nil
}

// Alloc takes a stack object. It lives until the enclosing checkpoint is
// released.
func (m *Memory) Alloc(size int, label string) (*Object, error) {
	obj, err := m.alloc(size, Stack, label)
	if err != nil {
		return nil, err
	}
	m.stack = append(m.stack, obj.ID)
	return obj, nil
}

// AllocHeap takes an object that lives until Free.
func (m *Memory) AllocHeap(size int, label string) (*Object, error) {
	return m.alloc(size, Heap, label)
}

// AllocStatic takes an object that lives as long as the arena.
func (m *Memory) AllocStatic(size int, label string) (*Object, error) {
	return m.alloc(size, Static, label)
}

func (m *Memory) Mark() Mark {
	return Mark(len(m.stack))
}

// Release drops every stack object allocated since mark.
func (m *Memory) Release(mark Mark) {
	for i := len(m.stack) - 1; i >= int(mark); i-- {
		id := m.stack[i]
		if obj, ok := m.objects[id]; ok {
			m.used[Stack] -= len(obj.Data)
			delete(m.objects, id)
		}
	}
	if int(mark) < len(m.stack) {
		m.stack = m.stack[:mark]
	}
}

// Free releases a heap object. a must point at its start.
func (m *Memory) Free(a Addr) error {
	if a == Null {
		return nil
	}
	obj, ok := m.objects[a.ObjectID()]
	if !ok {
		return fmt.Errorf("free %s: %w", a, ErrDangling)
	}
	if obj.Region != Heap || a.Offset() != 0 {
		return fmt.Errorf("free %s: %w", a, ErrBadFree)
	}
	m.used[Heap] -= len(obj.Data)
	delete(m.objects, obj.ID)
	m.stats.Frees++
	return nil
}

// Object resolves the object an address points into.
func (m *Memory) Object(a Addr) (*Object, error) {
	if a.ObjectID() == 0 {
		return nil, ErrNull
	}
	obj, ok := m.objects[a.ObjectID()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", a, ErrDangling)
	}
	return obj, nil
}

// Bytes returns n bytes of storage at a. The slice aliases the object.
func (m *Memory) Bytes(a Addr, n int) ([]byte, error) {
	obj, err := m.Object(a)
	if err != nil {
		return nil, err
	}
	off := a.Offset()
	if off < 0 || n < 0 || off+n > len(obj.Data) {
		return nil, fmt.Errorf("%d bytes at %s (size %d): %w", n, a, len(obj.Data), ErrOutOfBounds)
	}
	return obj.Data[off : off+n], nil
}

// Resize grows or shrinks the object a points to, keeping its contents.
// Used when an unsized array gets its size from an initializer.
func (m *Memory) Resize(a Addr, size int) error {
	obj, err := m.Object(a)
	if err != nil {
		return err
	}
	delta := size - len(obj.Data)
	if m.limit > 0 && delta > 0 && m.used[Stack]+m.used[Heap]+m.used[Static]+delta > m.limit {
		return ErrOutOfMemory
	}
	data := make([]byte, size)
	copy(data, obj.Data)
	obj.Data = data
	m.used[obj.Region] += delta
	m.stats.record(obj.Region, delta, m.used)
	return nil
}

// ReadUint reads a little-endian unsigned integer of size 1, 2, 4 or 8.
func (m *Memory) ReadUint(a Addr, size int) (uint64, error) {
	b, err := m.Bytes(a, size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case 8:
		return binary.LittleEndian.Uint64(b), nil
	}
	return 0, fmt.Errorf("unsupported scalar size %d", size)
}

// WriteUint stores the low size bytes of v.
func (m *Memory) WriteUint(a Addr, size int, v uint64) error {
	b, err := m.Bytes(a, size)
	if err != nil {
		return err
	}
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b, v)
	default:
		return fmt.Errorf("unsupported scalar size %d", size)
	}
	return nil
}

// Copy moves n bytes; overlapping ranges behave like memmove.
func (m *Memory) Copy(dst, src Addr, n int) error {
	if n == 0 {
		return nil
	}
	s, err := m.Bytes(src, n)
	if err != nil {
		return err
	}
	d, err := m.Bytes(dst, n)
	if err != nil {
		return err
	}
	copy(d, s)
	return nil
}

// CString reads a NUL-terminated string starting at a.
func (m *Memory) CString(a Addr) (string, error) {
	obj, err := m.Object(a)
	if err != nil {
		return "", err
	}
	off := a.Offset()
	if off < 0 || off > len(obj.Data) {
		return "", fmt.Errorf("string at %s: %w", a, ErrOutOfBounds)
	}
	for i := off; i < len(obj.Data); i++ {
		if obj.Data[i] == 0 {
			return string(obj.Data[off:i]), nil
		}
	}
	return "", fmt.Errorf("unterminated string at %s: %w", a, ErrOutOfBounds)
}

// Live is the number of live objects.
func (m *Memory) Live() int {
	return len(m.objects)
}
