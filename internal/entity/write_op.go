package entity

type WriteOpKind string

const (
	WriteOpRaw        WriteOpKind = "insert_raw"
	WriteOpContinuous WriteOpKind = "insert_continuous"
)

// WriteOp is one queued write operation. Exactly one of Raw or Continuous is
// set, matching Kind. Ops are immutable once enqueued; a failed batch
// re-enqueues the same values.
type WriteOp struct {
	Kind       WriteOpKind
	Raw        *RawContract
	Continuous *ContinuousContract
}

func NewRawWriteOp(data *RawContract) WriteOp {
	return WriteOp{Kind: WriteOpRaw, Raw: data}
}

func NewContinuousWriteOp(data *ContinuousContract) WriteOp {
	return WriteOp{Kind: WriteOpContinuous, Continuous: data}
}
