package kvs

import "testing"

func TestCRCKnownValues(t *testing.T) {
	cases := []struct {
		in   []byte
		want uint32
	}{
		{[]byte(""), 0x00000000},
		{[]byte("123456789"), 0x2639f4cb},
	}
	for _, c := range cases {
		if got := CRC(c.in); got != c.want {
			t.Errorf("CRC(%q) = %#x, want %#x", c.in, got, c.want)
		}
	}
}

func TestCRCDiffersOnBitFlip(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03, 0x04}
	b := []byte{0x01, 0x02, 0x03, 0x05}
	if CRC(a) == CRC(b) {
		t.Error("expected different CRCs for different inputs")
	}
}
