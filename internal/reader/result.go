package reader

// ResultKind is the outcome of one decode call.
type ResultKind int

const (
	MoreData ResultKind = iota
	EndOfStream
	Failed
)

func (k ResultKind) String() string {
	switch k {
	case MoreData:
		return "more data"
	case EndOfStream:
		return "end of stream"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result is returned by DecodeAudioData and DecodeVideoFrame. Err is set
// only when Kind is Failed.
type Result struct {
	Kind ResultKind
	Err  *Error
}

// Retry reports a failure that may succeed on a later call, such as a
// truncated element on a file that is still growing.
func (r Result) Retry() bool {
	return r.Kind == Failed && r.Err != nil && !r.Err.Fatal
}

// Terminal reports that no further decode calls will produce data.
func (r Result) Terminal() bool {
	switch r.Kind {
	case EndOfStream:
		return true
	case Failed:
		return r.Err == nil || r.Err.Fatal
	}
	return false
}

func moreData() Result { return Result{Kind: MoreData} }

func endOfStream() Result { return Result{Kind: EndOfStream} }

func failed(err *Error) Result { return Result{Kind: Failed, Err: err} }
