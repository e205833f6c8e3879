package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

var requiredColumns = []string{
	"direction", "frame_id", "frame_name", "cycle_ms", "dlc",
	"signal_name", "start_bit", "bit_length", "signed",
	"factor", "offset", "min", "max", "default",
}

// LoadCANMap reads the frame layout CSV at csvPath.
func LoadCANMap(csvPath string) (*CANMap, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ParseCANMap(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", csvPath, err)
	}
	return m, nil
}

// ParseCANMap reads one signal per row. Rows sharing a frame_id make up one
// frame and must agree on its name and DLC. Optional columns: endianness
// (only "little"), unit, comment.
func ParseCANMap(r io.Reader) (*CANMap, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, k := range requiredColumns {
		if _, ok := idx[k]; !ok {
			return nil, fmt.Errorf("can map missing required column: %q", k)
		}
	}

	m := &CANMap{
		ByID:   map[uint32]*FrameDef{},
		ByName: map[string]*FrameDef{},
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := csvRow{rec: rec, idx: idx}

		frameID, err := parseHexOrDecUint32(row.get("frame_id"))
		if err != nil {
			return nil, fmt.Errorf("invalid frame_id %q: %w", row.get("frame_id"), err)
		}
		frameName := row.get("frame_name")

		sig := SignalDef{
			Name:      row.get("signal_name"),
			StartBit:  row.getInt("start_bit"),
			BitLength: row.getInt("bit_length"),
			Signed:    parseBool(row.get("signed")),
			Factor:    row.getFloat("factor"),
			Offset:    row.getFloat("offset"),
			Min:       row.getFloat("min"),
			Max:       row.getFloat("max"),
			Default:   row.getFloat("default"),
			Unit:      row.get("unit"),
			Comment:   row.get("comment"),
		}
		dlc := row.getInt("dlc")
		if row.err != nil {
			return nil, fmt.Errorf("frame %s signal %s: %w", frameName, sig.Name, row.err)
		}

		if e := row.get("endianness"); e != "" && e != "little" {
			return nil, fmt.Errorf("frame %s signal %s: unsupported endianness %q (only little supported)",
				frameName, sig.Name, e)
		}
		direction := strings.ToLower(row.get("direction"))
		if direction != DirectionTx && direction != DirectionRx {
			return nil, fmt.Errorf("frame %s: direction must be tx or rx, got %q", frameName, row.get("direction"))
		}
		if dlc <= 0 || dlc > 8 {
			return nil, fmt.Errorf("frame %s (0x%X): invalid dlc %d", frameName, frameID, dlc)
		}
		if sig.BitLength <= 0 || sig.BitLength > 64 || sig.StartBit < 0 || sig.StartBit+sig.BitLength > dlc*8 {
			return nil, fmt.Errorf("frame %s signal %s: bits [%d,+%d) do not fit dlc %d",
				frameName, sig.Name, sig.StartBit, sig.BitLength, dlc)
		}
		if sig.Factor == 0 {
			return nil, fmt.Errorf("frame %s signal %s: factor must be non-zero", frameName, sig.Name)
		}

		fd, ok := m.ByID[frameID]
		if !ok {
			if _, dup := m.ByName[frameName]; dup {
				return nil, fmt.Errorf("frame name %s used by two frame ids", frameName)
			}
			fd = &FrameDef{
				ID:        frameID,
				Name:      frameName,
				DLC:       dlc,
				Direction: direction,
				CycleMS:   row.getInt("cycle_ms"),
			}
			m.ByID[frameID] = fd
			m.ByName[frameName] = fd
		}
		if fd.DLC != dlc || fd.Name != frameName || fd.Direction != direction {
			return nil, fmt.Errorf("frame 0x%X has inconsistent rows (%s/%d/%s vs %s/%d/%s)",
				frameID, fd.Name, fd.DLC, fd.Direction, frameName, dlc, direction)
		}
		if _, dup := fd.Signal(sig.Name); dup {
			return nil, fmt.Errorf("frame %s: duplicate signal %s", frameName, sig.Name)
		}
		fd.Signals = append(fd.Signals, sig)
	}

	for _, fd := range m.ByID {
		sort.Slice(fd.Signals, func(i, j int) bool { return fd.Signals[i].StartBit < fd.Signals[j].StartBit })
	}
	return m, nil
}

func (m *CANMap) FrameByName(name string) (*FrameDef, error) {
	fd, ok := m.ByName[name]
	if !ok {
		return nil, fmt.Errorf("unknown frame %q (available: %v)", name, m.FrameNames())
	}
	return fd, nil
}

func (m *CANMap) FrameByID(id uint32) (*FrameDef, error) {
	fd, ok := m.ByID[id]
	if !ok {
		return nil, fmt.Errorf("unknown frame id 0x%X", id)
	}
	return fd, nil
}

// csvRow reads named columns and keeps the first parse error.
type csvRow struct {
	rec []string
	idx map[string]int
	err error
}

func (r *csvRow) get(col string) string {
	i, ok := r.idx[col]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r *csvRow) getInt(col string) int {
	v, err := strconv.Atoi(r.get(col))
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func (r *csvRow) getFloat(col string) float64 {
	v, err := strconv.ParseFloat(r.get(col), 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func parseHexOrDecUint32(s string) (uint32, error) {
	ss := strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(ss, "0x") || strings.HasPrefix(ss, "0X") {
		base = 16
		ss = ss[2:]
	}
	u, err := strconv.ParseUint(ss, base, 32)
	if err != nil {
		return 0, err
	}
	return uint32(u), nil
}

func parseBool(s string) bool {
	ss := strings.ToLower(s)
	return ss == "true" || ss == "1" || ss == "yes"
}
