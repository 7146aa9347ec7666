package fixturetok

import "strconv"

// Same Harmony special-token rank scheme as the bpetoken package (ranks
// chosen so they never collide with the 0-255 byte-token range this
// fixture uses for ordinary text).
const (
	rankStartOfText uint32 = 199998
	rankEndOfText   uint32 = 199999

	rankReturn    uint32 = 200002
	rankConstrain uint32 = 200003
	rankChannel   uint32 = 200005
	rankStart     uint32 = 200006
	rankEnd       uint32 = 200007
	rankMessage   uint32 = 200008
	rankCall      uint32 = 200012
)

const (
	reservedStart = 200014
	reservedEnd   = 200114 // a small slice of the real band is enough for fixtures
)

func harmonySpecials() (encode map[string]uint32, decode map[uint32]string) {
	named := map[string]uint32{
		"<|startoftext|>": rankStartOfText,
		"<|endoftext|>":   rankEndOfText,
		"<|return|>":      rankReturn,
		"<|constrain|>":   rankConstrain,
		"<|channel|>":     rankChannel,
		"<|start|>":       rankStart,
		"<|end|>":         rankEnd,
		"<|message|>":     rankMessage,
		"<|call|>":        rankCall,
	}
	encode = make(map[string]uint32, len(named)+(reservedEnd-reservedStart+1))
	decode = make(map[uint32]string, len(encode))
	for lit, rank := range named {
		encode[lit] = rank
		decode[rank] = lit
	}
	for id := uint32(reservedStart); id <= uint32(reservedEnd); id++ {
		lit := "<|reserved_" + strconv.FormatUint(uint64(id), 10) + "|>"
		encode[lit] = id
		decode[id] = lit
	}
	return encode, decode
}
