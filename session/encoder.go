package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionV1 = 1

// Encode serializes a session into the versioned binary blob stored in Redis.
// The session id is not part of the blob; it lives in the Redis key.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionV1)
	buf.WriteByte(byte(s.Status))

	for _, field := range []struct {
		name  string
		value string
	}{
		{"userID", s.UserID},
		{"ipAddress", s.IPAddress},
		{"platform", s.Platform},
		{"deviceName", s.DeviceName},
	} {
		if len(field.value) > 255 {
			return nil, errors.New(field.name + " too long")
		}
		buf.WriteByte(byte(len(field.value)))
		buf.WriteString(field.value)
	}

	buf.Write(s.RefreshHash[:])

	if err := binary.Write(&buf, binary.BigEndian, s.RefreshExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.StartedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.EndedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode deserializes a binary session blob.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionV1 {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}

	status, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.Status = Status(status)

	for _, field := range []*string{&s.UserID, &s.IPAddress, &s.Platform, &s.DeviceName} {
		length, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	if _, err := io.ReadFull(reader, s.RefreshHash[:]); err != nil {
		return nil, err
	}

	if err := binary.Read(reader, binary.BigEndian, &s.RefreshExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.StartedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.EndedAt); err != nil {
		return nil, err
	}

	return s, nil
}
