package bytecode

import "testing"

func TestWriteOpAndByte(t *testing.T) {
	c := NewChunk()
	c.WriteOp(PushConst)
	c.WriteByte(42)
	code := c.Code()
	if len(code) != 2 || OpCode(code[0]) != PushConst || code[1] != 42 {
		t.Fatalf("got %v", code)
	}
}

func TestWriteDoubleRoundTrips(t *testing.T) {
	c := NewChunk()
	pos := c.WriteDouble(3.14159)
	if got := ReadDouble(c.Code(), pos); got != 3.14159 {
		t.Errorf("got %g, want 3.14159", got)
	}
}

func TestWriteInt32RoundTrips(t *testing.T) {
	c := NewChunk()
	pos := c.WriteInt32(-12345)
	if got := ReadInt32(c.Code(), pos); got != -12345 {
		t.Errorf("got %d, want -12345", got)
	}
}

func TestPatchInt32(t *testing.T) {
	c := NewChunk()
	pos := c.WriteInt32(0)
	c.WriteByte(0xFF)
	c.PatchInt32(pos, 99)
	if got := ReadInt32(c.Code(), pos); got != 99 {
		t.Errorf("got %d, want 99", got)
	}
	if c.Code()[pos+4] != 0xFF {
		t.Errorf("PatchInt32 clobbered a byte outside its 4-byte field")
	}
}

func TestGrowthPastInitialCapacity(t *testing.T) {
	c := NewChunk()
	for i := 0; i < 100; i++ {
		c.WriteOp(Add)
	}
	if c.Count() != 100 {
		t.Fatalf("got %d bytes, want 100", c.Count())
	}
	for i, b := range c.Code() {
		if OpCode(b) != Add {
			t.Fatalf("byte %d: got %v, want Add", i, OpCode(b))
		}
	}
}

func TestEachChunkGetsAUniqueID(t *testing.T) {
	a, b := NewChunk(), NewChunk()
	if a.ID == b.ID {
		t.Errorf("got identical chunk ids %v", a.ID)
	}
}

func TestLookupVar(t *testing.T) {
	tests := []struct {
		name string
		want VarID
	}{
		{"open", VarOpen}, {"high", VarHigh}, {"low", VarLow},
		{"close", VarClose}, {"volume", VarVolume}, {"date", VarDate},
		{"time", VarTime}, {"hour", VarHour}, {"minute", VarMinute},
		{"weekday", VarWeekday},
	}
	for _, tt := range tests {
		got, ok := LookupVar(tt.name)
		if !ok || got != tt.want {
			t.Errorf("LookupVar(%q) = %d, %v; want %d, true", tt.name, got, ok, tt.want)
		}
	}
	if _, ok := LookupVar("nonesuch"); ok {
		t.Errorf("LookupVar(nonesuch) should fail")
	}
}

func TestLookupFunc(t *testing.T) {
	tests := []struct {
		name string
		want FuncID
	}{
		{"sma", FuncSMA}, {"ema", FuncEMA}, {"rsi", FuncRSI},
	}
	for _, tt := range tests {
		got, ok := LookupFunc(tt.name)
		if !ok || got != tt.want {
			t.Errorf("LookupFunc(%q) = %d, %v; want %d, true", tt.name, got, ok, tt.want)
		}
	}
}
