package imap

import "strconv"

// SeqRange is an interval of message sequence numbers. A zero bound stands
// for "*", the highest (or lowest) sequence number in the mailbox.
type SeqRange struct {
	Start uint32
	Stop  uint32
}

// Between returns the inclusive range a:b.
func Between(a, b uint32) SeqRange {
	return SeqRange{Start: a, Stop: b}
}

// From returns the open-ended range a:*.
func From(a uint32) SeqRange {
	return SeqRange{Start: a}
}

// UpTo returns the open-ended range *:b.
func UpTo(b uint32) SeqRange {
	return SeqRange{Stop: b}
}

// String renders the range in IMAP sequence-set syntax.
func (r SeqRange) String() string {
	return formatSeqNum(r.Start) + ":" + formatSeqNum(r.Stop)
}

func formatSeqNum(n uint32) string {
	if n == 0 {
		return "*"
	}
	return strconv.FormatUint(uint64(n), 10)
}
