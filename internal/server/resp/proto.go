package respserver

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/redbasin/basin/pkg/netutil"
)

// RESP2 wire codec. Requests arrive as arrays of bulk strings; replies are
// written with the small helper set below.

// maxBulkLen caps a single request bulk string (512 MiB, the protocol limit).
const maxBulkLen = 512 << 20

// maxMultiBulk caps the number of arguments in one request.
const maxMultiBulk = 1024 * 1024

// readCommand reads one client command as a list of byte-string arguments.
func readCommand(br *bufio.Reader) ([][]byte, error) {
	line, err := netutil.ReadLine(br)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 || line[0] != '*' {
		return nil, fmt.Errorf("resp: expected array, got %q", line)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil || n < 0 || n > maxMultiBulk {
		return nil, fmt.Errorf("resp: bad array length %q", line[1:])
	}
	args := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		arg, err := readBulk(br)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func readBulk(br *bufio.Reader) ([]byte, error) {
	line, err := netutil.ReadLine(br)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 || line[0] != '$' {
		return nil, fmt.Errorf("resp: expected bulk string, got %q", line)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil || n < 0 || n > maxBulkLen {
		return nil, fmt.Errorf("resp: bad bulk length %q", line[1:])
	}
	buf := make([]byte, n+2)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, err
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return nil, fmt.Errorf("resp: bulk string not CRLF terminated")
	}
	return buf[:n], nil
}

// replyWriter accumulates one reply; callers flush once per command.
type replyWriter struct {
	bw *bufio.Writer
}

func newReplyWriter(w io.Writer) *replyWriter {
	return &replyWriter{bw: bufio.NewWriter(w)}
}

func (w *replyWriter) flush() error { return w.bw.Flush() }

func (w *replyWriter) simple(s string) {
	w.bw.WriteByte('+')
	w.bw.WriteString(s)
	w.bw.WriteString("\r\n")
}

func (w *replyWriter) error(msg string) {
	w.bw.WriteString("-ERR ")
	w.bw.WriteString(msg)
	w.bw.WriteString("\r\n")
}

func (w *replyWriter) integer(n int64) {
	w.bw.WriteByte(':')
	w.bw.WriteString(strconv.FormatInt(n, 10))
	w.bw.WriteString("\r\n")
}

func (w *replyWriter) bulk(b []byte) {
	w.bw.WriteByte('$')
	w.bw.WriteString(strconv.Itoa(len(b)))
	w.bw.WriteString("\r\n")
	w.bw.Write(b)
	w.bw.WriteString("\r\n")
}

func (w *replyWriter) bulkString(s string) { w.bulk([]byte(s)) }

func (w *replyWriter) null() {
	w.bw.WriteString("$-1\r\n")
}

func (w *replyWriter) arrayHeader(n int) {
	w.bw.WriteByte('*')
	w.bw.WriteString(strconv.Itoa(n))
	w.bw.WriteString("\r\n")
}
