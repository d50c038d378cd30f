package respserver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redbasin/basin/internal/stream"
	"github.com/redbasin/basin/internal/streamdb"
)

// handleCommand dispatches one parsed request and writes exactly one reply.
// The returned bool asks the connection loop to close (QUIT).
func (s *Server) handleCommand(ctx context.Context, w *replyWriter, args [][]byte) bool {
	if len(args) == 0 {
		w.error("empty command")
		return false
	}
	name := strings.ToUpper(string(args[0]))

	var err error
	quit := false
	switch name {
	case "PING":
		if len(args) > 1 {
			w.bulk(args[1])
		} else {
			w.simple("PONG")
		}
	case "ECHO":
		if len(args) != 2 {
			err = errWrongArity(name)
		} else {
			w.bulk(args[1])
		}
	case "QUIT":
		w.simple("OK")
		quit = true
	case "XADD":
		err = s.cmdXAdd(ctx, w, args[1:])
	case "XLEN":
		err = s.cmdXLen(w, args[1:])
	case "XRANGE":
		err = s.cmdXRange(ctx, w, args[1:], false)
	case "XREVRANGE":
		err = s.cmdXRange(ctx, w, args[1:], true)
	case "XDEL":
		err = s.cmdXDel(ctx, w, args[1:])
	default:
		err = fmt.Errorf("unknown command '%s'", strings.ToLower(name))
	}

	if err != nil {
		w.error(err.Error())
	}
	s.metrics.ObserveCommand(name, err != nil)
	return quit
}

func errWrongArity(name string) error {
	return fmt.Errorf("wrong number of arguments for '%s' command", strings.ToLower(name))
}

func (s *Server) cmdXAdd(ctx context.Context, w *replyWriter, args [][]byte) error {
	// XADD key <*|id|ms-*> field value [field value ...]
	if len(args) < 4 {
		return errWrongArity("xadd")
	}
	key := string(args[0])
	idArg := string(args[1])
	fields := args[2:]

	if len(fields)%2 != 0 {
		return errWrongArity("xadd")
	}
	limits := s.rt.Config().StreamDefaults
	if limits.MaxFields > 0 && len(fields) > limits.MaxFields {
		return fmt.Errorf("too many fields in entry")
	}
	for _, f := range fields {
		if limits.MaxFieldBytes > 0 && len(f) > limits.MaxFieldBytes {
			return fmt.Errorf("field or value exceeds maximum allowed size")
		}
	}

	req := streamdb.AddRequest{Fields: fields}
	if idArg != "*" {
		id, err := stream.ParseNewEntryID(idArg)
		if err != nil {
			return err
		}
		req.ID = &id
	}

	st, err := s.rt.OpenStream(s.namespace, key)
	if err != nil {
		return err
	}
	id, err := st.Add(ctx, req)
	if err != nil {
		return err
	}
	s.metrics.ObserveEntriesAdded(1)
	w.bulkString(id.String())
	return nil
}

func (s *Server) cmdXLen(w *replyWriter, args [][]byte) error {
	if len(args) != 1 {
		return errWrongArity("xlen")
	}
	st, err := s.rt.OpenStream(s.namespace, string(args[0]))
	if err != nil {
		return err
	}
	w.integer(int64(st.Len()))
	return nil
}

// parseRangeBound handles "-", "+", the "(" exclusive prefix, and the id
// forms accepted by the range parsers.
func parseRangeBound(arg string, isStart bool) (stream.EntryID, bool, error) {
	exclusive := false
	if strings.HasPrefix(arg, "(") {
		exclusive = true
		arg = arg[1:]
	}
	switch arg {
	case "-":
		return stream.Minimum(), exclusive, nil
	case "+":
		return stream.Maximum(), exclusive, nil
	}
	var id stream.EntryID
	var err error
	if isStart {
		id, err = stream.ParseRangeStart(arg)
	} else {
		id, err = stream.ParseRangeEnd(arg)
	}
	return id, exclusive, err
}

func (s *Server) cmdXRange(ctx context.Context, w *replyWriter, args [][]byte, reverse bool) error {
	// XRANGE key start end [COUNT n] / XREVRANGE key end start [COUNT n]
	if len(args) != 3 && len(args) != 5 {
		if reverse {
			return errWrongArity("xrevrange")
		}
		return errWrongArity("xrange")
	}
	key := string(args[0])
	first, second := string(args[1]), string(args[2])
	if reverse {
		// XREVRANGE takes end first.
		first, second = second, first
	}

	start, exclStart, err := parseRangeBound(first, true)
	if err != nil {
		return err
	}
	end, exclEnd, err := parseRangeBound(second, false)
	if err != nil {
		return err
	}

	var count uint64
	if len(args) == 5 {
		if !strings.EqualFold(string(args[3]), "COUNT") {
			return fmt.Errorf("syntax error")
		}
		count, err = strconv.ParseUint(string(args[4]), 10, 64)
		if err != nil {
			return fmt.Errorf("value is not an integer or out of range")
		}
	}

	st, err := s.rt.OpenStream(s.namespace, key)
	if err != nil {
		return err
	}
	entries, err := st.Range(ctx, streamdb.RangeOptions{
		Start:        start,
		End:          end,
		ExcludeStart: exclStart,
		ExcludeEnd:   exclEnd,
		Count:        count,
		Reverse:      reverse,
	})
	if err != nil {
		return err
	}
	s.metrics.ObserveEntriesRead(len(entries))

	w.arrayHeader(len(entries))
	for _, e := range entries {
		w.arrayHeader(2)
		w.bulkString(e.ID.String())
		w.arrayHeader(len(e.Fields))
		for _, f := range e.Fields {
			w.bulk(f)
		}
	}
	return nil
}

func (s *Server) cmdXDel(ctx context.Context, w *replyWriter, args [][]byte) error {
	if len(args) < 2 {
		return errWrongArity("xdel")
	}
	ids := make([]stream.EntryID, 0, len(args)-1)
	for _, a := range args[1:] {
		id, err := stream.ParseEntryID(string(a))
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	st, err := s.rt.OpenStream(s.namespace, string(args[0]))
	if err != nil {
		return err
	}
	removed, err := st.Delete(ctx, ids)
	if err != nil {
		return err
	}
	w.integer(int64(removed))
	return nil
}
