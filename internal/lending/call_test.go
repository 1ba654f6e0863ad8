package lending

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestAsBigIntVariants(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{big.NewInt(42), "42"},
		{uint8(7), "7"},
		{uint64(1 << 40), "1099511627776"},
		{int32(-5), "-5"},
	}
	for _, tc := range cases {
		got, err := AsBigInt(tc.in)
		if err != nil {
			t.Fatalf("AsBigInt(%v): %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Fatalf("AsBigInt(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}

	if _, err := AsBigInt("42"); err == nil {
		t.Fatalf("expected error for string input")
	}
}

func TestAsAddress(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	got, err := AsAddress(addr)
	if err != nil || got != addr {
		t.Fatalf("AsAddress = %v, %v", got, err)
	}
	if _, err := AsAddress(big.NewInt(1)); err == nil {
		t.Fatalf("expected error for non-address input")
	}
}

func TestBytes32ToString(t *testing.T) {
	var raw [32]byte
	copy(raw[:], "MKR")
	got, ok := Bytes32ToString(raw)
	if !ok || got != "MKR" {
		t.Fatalf("Bytes32ToString = %q, %v", got, ok)
	}
	if _, ok := Bytes32ToString(42); ok {
		t.Fatalf("expected failure for non-bytes input")
	}
}

func TestParseAddresses(t *testing.T) {
	addresses, err := ParseAddresses([]string{
		" 0x1111111111111111111111111111111111111111 ",
		"",
		"0x2222222222222222222222222222222222222222",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addresses) != 2 {
		t.Fatalf("count = %d, want 2", len(addresses))
	}

	if _, err := ParseAddresses([]string{"0xzz"}); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}

func TestParseOptionalAddress(t *testing.T) {
	addr, err := ParseOptionalAddress("")
	if err != nil || addr != nil {
		t.Fatalf("empty input should yield nil, got %v, %v", addr, err)
	}

	addr, err = ParseOptionalAddress("0x1111111111111111111111111111111111111111")
	if err != nil || addr == nil {
		t.Fatalf("unexpected result: %v, %v", addr, err)
	}

	if _, err := ParseOptionalAddress("bogus"); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}
