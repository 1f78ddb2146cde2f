package vault

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// fileHeader is the on-disk header preceding the ciphertext. The layout is
// magic, version, flags, KDF algorithm id, argon2 cost parameters, then
// length-prefixed salt and nonce.
type fileHeader struct {
	Flags        uint16
	KDFAlgo      byte
	ArgonTime    uint32
	ArgonMemory  uint32
	ArgonThreads uint8
	Salt         []byte
	Nonce        []byte
}

const minHeaderLen = len(Magic) + 1 + 2 + 1 + 4 + 4 + 1 + 1 + 1

func encodeHeader(h fileHeader) ([]byte, error) {
	buf := &bytes.Buffer{}

	buf.WriteString(Magic)
	buf.WriteByte(Version)

	if err := binary.Write(buf, binary.BigEndian, h.Flags); err != nil {
		return nil, err
	}
	buf.WriteByte(h.KDFAlgo)

	if err := binary.Write(buf, binary.BigEndian, h.ArgonTime); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, h.ArgonMemory); err != nil {
		return nil, err
	}
	buf.WriteByte(h.ArgonThreads)

	if len(h.Salt) > 255 {
		return nil, errors.New("vault: salt too long")
	}
	buf.WriteByte(uint8(len(h.Salt)))
	buf.Write(h.Salt)

	if len(h.Nonce) > 255 {
		return nil, errors.New("vault: nonce too long")
	}
	buf.WriteByte(uint8(len(h.Nonce)))
	buf.Write(h.Nonce)

	return buf.Bytes(), nil
}

// decodeHeader validates the header structurally and returns it along with
// the remaining ciphertext. Unknown magic or version means the file is not
// ours (or from a future format) and must not be touched further.
func decodeHeader(raw []byte) (fileHeader, []byte, error) {
	var h fileHeader
	if len(raw) < minHeaderLen {
		return h, nil, ErrCorrupt
	}

	buf := bytes.NewReader(raw)

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(buf, magic); err != nil || string(magic) != Magic {
		return h, nil, ErrCorrupt
	}

	version, err := buf.ReadByte()
	if err != nil || version != Version {
		return h, nil, ErrCorrupt
	}

	if err := binary.Read(buf, binary.BigEndian, &h.Flags); err != nil {
		return h, nil, ErrCorrupt
	}
	if h.KDFAlgo, err = buf.ReadByte(); err != nil || h.KDFAlgo != kdfArgon2id {
		return h, nil, ErrCorrupt
	}

	if err := binary.Read(buf, binary.BigEndian, &h.ArgonTime); err != nil {
		return h, nil, ErrCorrupt
	}
	if err := binary.Read(buf, binary.BigEndian, &h.ArgonMemory); err != nil {
		return h, nil, ErrCorrupt
	}
	if h.ArgonThreads, err = buf.ReadByte(); err != nil {
		return h, nil, ErrCorrupt
	}

	saltLen, err := buf.ReadByte()
	if err != nil {
		return h, nil, ErrCorrupt
	}
	h.Salt = make([]byte, saltLen)
	if _, err := io.ReadFull(buf, h.Salt); err != nil {
		return h, nil, ErrCorrupt
	}

	nonceLen, err := buf.ReadByte()
	if err != nil {
		return h, nil, ErrCorrupt
	}
	h.Nonce = make([]byte, nonceLen)
	if _, err := io.ReadFull(buf, h.Nonce); err != nil {
		return h, nil, ErrCorrupt
	}

	return h, raw[len(raw)-buf.Len():], nil
}
