package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidVersion = errors.New("unsupported glTF version")
	ErrInvalidGLB     = errors.New("invalid GLB container")
	ErrInvalidBuffer  = errors.New("invalid buffer")
)

// gltfParser decodes a glTF or GLB file and reads typed accessor data out of its buffers.
type gltfParser struct {
	baseDir  string
	document *gltfDocument
	binChunk []byte
}

// parseFile reads and decodes the file at path. The format is picked from the GLB magic number.
func (p *gltfParser) parseFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read glTF")
	}
	p.baseDir = filepath.Dir(path)
	return p.parse(data)
}

func (p *gltfParser) parse(data []byte) error {
	jsonData := data
	if len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic {
		var err error
		if jsonData, p.binChunk, err = splitGLB(data); err != nil {
			return err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return errors.Wrap(err, "decode glTF JSON")
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errors.Wrapf(ErrInvalidVersion, "asset version %q", doc.Asset.Version)
	}
	for i := range doc.Buffers {
		if err := p.loadBuffer(i, &doc.Buffers[i]); err != nil {
			return errors.Wrapf(err, "buffer %d", i)
		}
	}
	p.document = &doc
	return nil
}

func splitGLB(data []byte) ([]byte, []byte, error) {
	r := bytes.NewReader(data)
	var header glbHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, errors.Wrap(ErrInvalidGLB, err.Error())
	}
	if header.Version != glbVersion {
		return nil, nil, errors.Wrapf(ErrInvalidGLB, "version %d", header.Version)
	}

	var jsonChunk, binChunk []byte
	for {
		var ch glbChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, errors.Wrap(ErrInvalidGLB, err.Error())
		}
		chunk := make([]byte, ch.Length)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, nil, errors.Wrap(ErrInvalidGLB, "truncated chunk")
		}
		switch ch.Type {
		case glbChunkJSON:
			jsonChunk = chunk
		case glbChunkBIN:
			binChunk = chunk
		}
	}
	if jsonChunk == nil {
		return nil, nil, errors.Wrap(ErrInvalidGLB, "missing JSON chunk")
	}
	return jsonChunk, binChunk, nil
}

func (p *gltfParser) loadBuffer(i int, buf *gltfBuffer) error {
	switch {
	case buf.URI == "" && i == 0 && p.binChunk != nil:
		buf.data = p.binChunk
	case buf.URI == "":
		return errors.Wrap(ErrInvalidBuffer, "no uri and no GLB binary chunk")
	case strings.HasPrefix(buf.URI, "data:"):
		data, err := decodeDataURI(buf.URI)
		if err != nil {
			return err
		}
		buf.data = data
	default:
		data, err := os.ReadFile(filepath.Join(p.baseDir, buf.URI))
		if err != nil {
			return errors.Wrapf(err, "load %q", buf.URI)
		}
		buf.data = data
	}
	if len(buf.data) < buf.ByteLength {
		return errors.Wrapf(ErrInvalidBuffer, "%d bytes, declared %d", len(buf.data), buf.ByteLength)
	}
	return nil
}

// decodeDataURI decodes data:[<mediatype>];base64,<data>.
func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 || !strings.Contains(uri[:comma], ";base64") {
		return nil, errors.Wrap(ErrInvalidBuffer, "only base64 data URIs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, errors.Wrap(ErrInvalidBuffer, err.Error())
	}
	return data, nil
}

// elements returns the packed bytes of every element of an accessor, with the buffer view stride removed.
func (p *gltfParser) elements(index int, elementSize int) ([]byte, *gltfAccessor, error) {
	doc := p.document
	if index < 0 || index >= len(doc.Accessors) {
		return nil, nil, errors.Errorf("accessor %d out of range", index)
	}
	acc := &doc.Accessors[index]
	if acc.Sparse != nil {
		return nil, nil, errors.Errorf("accessor %d: sparse accessors are not supported", index)
	}
	if acc.BufferView == nil || *acc.BufferView >= len(doc.BufferViews) {
		return nil, nil, errors.Errorf("accessor %d has no buffer view", index)
	}
	bv := &doc.BufferViews[*acc.BufferView]
	if bv.Buffer >= len(doc.Buffers) {
		return nil, nil, errors.Errorf("buffer view %d: buffer %d out of range", *acc.BufferView, bv.Buffer)
	}
	src := doc.Buffers[bv.Buffer].data

	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	start := bv.ByteOffset + acc.ByteOffset
	if acc.Count > 0 && start+(acc.Count-1)*stride+elementSize > len(src) {
		return nil, nil, errors.Errorf("accessor %d reads past the end of buffer %d", index, bv.Buffer)
	}

	out := make([]byte, acc.Count*elementSize)
	for i := 0; i < acc.Count; i++ {
		copy(out[i*elementSize:(i+1)*elementSize], src[start+i*stride:])
	}
	return out, acc, nil
}

// readFloats reads a FLOAT accessor of the given element type into a flat slice.
func (p *gltfParser) readFloats(index int, accessorType string, components int) ([]float32, error) {
	if index < len(p.document.Accessors) && index >= 0 {
		acc := p.document.Accessors[index]
		if acc.Type != accessorType || acc.ComponentType != gltfComponentFloat {
			return nil, errors.Errorf("accessor %d: want %s float, got %s/%d", index, accessorType, acc.Type, acc.ComponentType)
		}
	}
	raw, _, err := p.elements(index, 4*components)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out, nil
}

// readIndices reads a SCALAR unsigned accessor of any width.
func (p *gltfParser) readIndices(index int) ([]int32, error) {
	if index < 0 || index >= len(p.document.Accessors) {
		return nil, errors.Errorf("accessor %d out of range", index)
	}
	var size int
	switch p.document.Accessors[index].ComponentType {
	case gltfComponentUnsignedByte:
		size = 1
	case gltfComponentUnsignedShort:
		size = 2
	case gltfComponentUnsignedInt:
		size = 4
	default:
		return nil, errors.Errorf("accessor %d: unsupported index component type %d", index, p.document.Accessors[index].ComponentType)
	}
	raw, acc, err := p.elements(index, size)
	if err != nil {
		return nil, err
	}
	out := make([]int32, acc.Count)
	for i := range out {
		switch size {
		case 1:
			out[i] = int32(raw[i])
		case 2:
			out[i] = int32(binary.LittleEndian.Uint16(raw[2*i:]))
		case 4:
			out[i] = int32(binary.LittleEndian.Uint32(raw[4*i:]))
		}
	}
	return out, nil
}
