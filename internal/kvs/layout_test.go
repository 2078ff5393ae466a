package kvs

import "testing"

func TestLayoutNameLenIsMultipleOfWriteBlock(t *testing.T) {
	for _, wb := range []uint32{1, 2, 4, 8, 16, 32} {
		l := newLayout(wb)
		if l.nameLen < minNameLen {
			t.Errorf("write_block=%d: nameLen %d below minimum %d", wb, l.nameLen, minNameLen)
		}
		if l.nameLen%wb != 0 {
			t.Errorf("write_block=%d: nameLen %d is not a multiple of write_block", wb, l.nameLen)
		}
	}
}

func TestCanonicalKeyTruncatesAndPads(t *testing.T) {
	l := newLayout(1)
	short := l.canonicalKey("abc")
	if len(short) != int(l.nameLen) {
		t.Fatalf("canonicalKey length = %d, want %d", len(short), l.nameLen)
	}
	for i := 3; i < len(short); i++ {
		if short[i] != 0 {
			t.Errorf("expected zero padding at index %d, got %#x", i, short[i])
		}
	}

	long := make([]byte, 0, l.nameLen+8)
	for i := uint32(0); i < l.nameLen+8; i++ {
		long = append(long, byte('a'+i%26))
	}
	truncated := l.canonicalKey(string(long))
	if len(truncated) != int(l.nameLen) {
		t.Fatalf("truncated length = %d, want %d", len(truncated), l.nameLen)
	}
	if string(truncated) != string(long[:l.nameLen]) {
		t.Error("canonicalKey did not truncate to the first nameLen bytes")
	}
}

func TestBankHeaderRoundTrip(t *testing.T) {
	h := bankHeader{magic: headerMagic, version: 7, logSize: 128}
	got := decodeBankHeader(encodeBankHeader(h))
	if got != h {
		t.Errorf("round trip = %+v, want %+v", got, h)
	}
}

func TestBankHeaderValidity(t *testing.T) {
	cases := []struct {
		h    bankHeader
		want bool
	}{
		{bankHeader{magic: headerMagic, version: 0, logSize: 128}, true},
		{bankHeader{magic: headerMagic, version: 0, logSize: maxLogSize}, true},
		{bankHeader{magic: headerMagic, version: 0, logSize: maxLogSize + 1}, false},
		{bankHeader{magic: 0xFFFFFFFF, version: 0, logSize: 128}, false},
	}
	for _, c := range cases {
		if got := c.h.valid(); got != c.want {
			t.Errorf("valid(%+v) = %v, want %v", c.h, got, c.want)
		}
	}
}
