package harmony

// Tokenizer is the narrow interface the Harmony core consumes from a BPE
// tokenizer. The tokenizer itself — vocabulary loading, merge rules, special
// token registration — lives entirely outside this package; implementations
// are provided by the bpetoken (production) and internal/fixturetok (test)
// packages.
type Tokenizer interface {
	// EncodeOrdinary encodes text with no special-token interpretation.
	EncodeOrdinary(text string) []uint32
	// EncodeWithSpecialTokens encodes text, recognizing every registered
	// special token sentinel that appears in it.
	EncodeWithSpecialTokens(text string) []uint32
	// Encode encodes text, treating only the sentinels in allowedSpecial as
	// special; any other "<|...|>"-shaped substring is encoded as ordinary
	// text.
	Encode(text string, allowedSpecial map[string]struct{}) ([]uint32, error)
	// DecodeUTF8 decodes tokens into a string. It fails if the decoded bytes
	// are not valid UTF-8.
	DecodeUTF8(tokens []uint32) (string, error)
	// DecodeBytes decodes tokens into raw bytes without a UTF-8 check.
	DecodeBytes(tokens []uint32) ([]byte, error)
	// SpecialTokens returns the set of special token sentinel strings this
	// tokenizer recognizes.
	SpecialTokens() map[string]struct{}
	// IsSpecialToken reports whether rank denotes a special token.
	IsSpecialToken(rank uint32) bool
}

// FormattingToken identifies an abstract Harmony control token. Encodings map
// each value to a literal sentinel string at load time.
type FormattingToken int

// The full formatting-token enumeration. Refusal, BeginUntrusted,
// EndUntrusted, MetaSep and MetaEnd are declared for forward compatibility;
// only Refusal/BeginUntrusted/EndUntrusted are mapped by HarmonyGptOss and
// none of the five is exercised by render or parse logic (spec Open
// Question, deliberately left unimplemented rather than guessed at).
const (
	TokStart FormattingToken = iota
	TokMessage
	TokEndMessage
	TokEndMessageDoneSampling
	TokEndMessageAssistantToTool
	TokRefusal
	TokConstrainedFormat
	TokChannel
	TokBeginUntrusted
	TokEndUntrusted
	TokMetaSep
	TokMetaEnd
)

// formattingTokenNames gives each FormattingToken its abstract name, used
// only in error messages — the literal sentinel text lives in the Encoding's
// format token mapping, not here.
var formattingTokenNames = map[FormattingToken]string{
	TokStart:                     "Start",
	TokMessage:                   "Message",
	TokEndMessage:                "EndMessage",
	TokEndMessageDoneSampling:    "EndMessageDoneSampling",
	TokEndMessageAssistantToTool: "EndMessageAssistantToTool",
	TokRefusal:                   "Refusal",
	TokConstrainedFormat:         "ConstrainedFormat",
	TokChannel:                   "Channel",
	TokBeginUntrusted:            "BeginUntrusted",
	TokEndUntrusted:              "EndUntrusted",
	TokMetaSep:                   "MetaSep",
	TokMetaEnd:                   "MetaEnd",
}

func (f FormattingToken) String() string {
	if n, ok := formattingTokenNames[f]; ok {
		return n
	}
	return "Unknown"
}

// ReservedTokenLiteral formats the literal decode form for a rank inside a
// reserved special-token band: "<|reserved_<rank>|>".
func ReservedTokenLiteral(rank uint32) string {
	return "<|reserved_" + uitoa(rank) + "|>"
}

func uitoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
