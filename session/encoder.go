package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	recordFormatVersionCurrent = 1

	// revokedFlagOffset is the byte position of the revoked flag inside an
	// encoded record. The Lua scripts in store.go flip this byte with
	// SETRANGE and must be updated together with the layout.
	revokedFlagOffset = 1
)

// Encode serializes a record as:
// version(1) revoked(1) kind(1) issuedAt(8) expiresAt(8)
// principalLen(1) principal parentLen(1) parent.
func Encode(r *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordFormatVersionCurrent)

	if r.Revoked {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if r.Kind != KindAccess && r.Kind != KindRefresh {
		return nil, errors.New("invalid record kind")
	}
	buf.WriteByte(r.Kind)

	if err := binary.Write(&buf, binary.BigEndian, r.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt); err != nil {
		return nil, err
	}

	if len(r.PrincipalID) == 0 || len(r.PrincipalID) > 255 {
		return nil, errors.New("invalid principal id length")
	}
	buf.WriteByte(byte(len(r.PrincipalID)))
	buf.WriteString(r.PrincipalID)

	if len(r.ParentID) > 255 {
		return nil, errors.New("parent id too long")
	}
	buf.WriteByte(byte(len(r.ParentID)))
	buf.WriteString(r.ParentID)

	return buf.Bytes(), nil
}

// Decode parses an encoded record. The token id is not part of the blob;
// it is the Redis key and the caller fills it in.
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersionCurrent {
		return nil, errors.New("invalid record version")
	}

	r := &Record{}

	revoked, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	r.Revoked = revoked != 0

	r.Kind, err = reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if r.Kind != KindAccess && r.Kind != KindRefresh {
		return nil, errors.New("invalid record kind")
	}

	if err := binary.Read(reader, binary.BigEndian, &r.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, err
	}

	principalLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if principalLen == 0 {
		return nil, errors.New("empty principal id")
	}
	principal := make([]byte, principalLen)
	if _, err := io.ReadFull(reader, principal); err != nil {
		return nil, err
	}
	r.PrincipalID = string(principal)

	parentLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if parentLen > 0 {
		parent := make([]byte, parentLen)
		if _, err := io.ReadFull(reader, parent); err != nil {
			return nil, err
		}
		r.ParentID = string(parent)
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing record bytes")
	}

	return r, nil
}
