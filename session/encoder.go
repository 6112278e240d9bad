package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

const sessionFormatVersionCurrent = 1

// ErrUnsupportedVersion is returned by Decode for unknown layouts.
var ErrUnsupportedVersion = errors.New("unsupported session schema version")

// Encode serializes s into the current binary layout.
func Encode(s *ActiveSession) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(32 + len(s.ID) + len(s.Username) + len(s.Token) + len(s.IP) + len(s.Location))

	buf.WriteByte(sessionFormatVersionCurrent)

	if err := writeShort(&buf, "id", s.ID); err != nil {
		return nil, err
	}
	if err := writeShort(&buf, "username", s.Username); err != nil {
		return nil, err
	}
	if err := writeLong(&buf, "token", s.Token); err != nil {
		return nil, err
	}
	if err := writeShort(&buf, "ip", s.IP); err != nil {
		return nil, err
	}
	if err := writeLong(&buf, "location", s.Location); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, s.IssuedAt.UnixNano()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt.UnixNano()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (*ActiveSession, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	s := &ActiveSession{}
	if s.ID, err = readShort(reader); err != nil {
		return nil, err
	}
	if s.Username, err = readShort(reader); err != nil {
		return nil, err
	}
	if s.Token, err = readLong(reader); err != nil {
		return nil, err
	}
	if s.IP, err = readShort(reader); err != nil {
		return nil, err
	}
	if s.Location, err = readLong(reader); err != nil {
		return nil, err
	}

	var issued, expires int64
	if err := binary.Read(reader, binary.BigEndian, &issued); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expires); err != nil {
		return nil, err
	}
	s.IssuedAt = time.Unix(0, issued)
	s.ExpiresAt = time.Unix(0, expires)

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in session record")
	}
	return s, nil
}

func writeShort(buf *bytes.Buffer, field, v string) error {
	if len(v) > math.MaxUint8 {
		return fmt.Errorf("%s too long", field)
	}
	buf.WriteByte(byte(len(v)))
	buf.WriteString(v)
	return nil
}

func writeLong(buf *bytes.Buffer, field, v string) error {
	if len(v) > math.MaxUint16 {
		return fmt.Errorf("%s too long", field)
	}
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(v)))
	buf.Write(n[:])
	buf.WriteString(v)
	return nil
}

func readShort(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	return readN(r, int(n))
}

func readLong(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	return readN(r, int(n))
}

func readN(r *bytes.Reader, n int) (string, error) {
	if n > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
