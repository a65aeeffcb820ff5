package core

// xls.go reads legacy Excel 97-2003 workbooks: BIFF8 records stored in an
// OLE2 compound file. excelize only understands the zip based format, so
// these go through github.com/extrame/xls.
//
// The compound file reader in that library calls log.Fatal when a sector
// chain points outside the allocation table, so the tables are checked here
// before the library sees the file.

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"

	"github.com/extrame/xls"
)

const (
	oleHeaderSize = 512
	oleSectorSize = 512
	oleEntrySize  = 128
	oleEndOfChain = 0xFFFFFFFE

	// Widest row scanned when a sheet has no ROW records to say where it ends.
	xlsMaxScanCol = 256
)

var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

var errBrokenCompoundFile = errors.New("broken compound file")

func isCompoundFile(data []byte) bool {
	return bytes.HasPrefix(data, oleSignature)
}

func unreadableXLS(cause any) error {
	return fmt.Errorf("%w: legacy .xls workbook could not be read, save it as .xlsx (%v)", ErrUnsupportedFormat, cause)
}

// parseLegacyWorkbook reads the first sheet of a BIFF8 workbook.
func parseLegacyWorkbook(data []byte) (grid Grid, err error) {
	if err := checkCompoundFile(data); err != nil {
		return nil, unreadableXLS(err)
	}

	defer func() {
		if r := recover(); r != nil {
			grid = nil
			err = unreadableXLS(r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, unreadableXLS(err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, ErrNoData
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoData
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		rows = append(rows, legacyRow(sheet, i))
	}
	return compactRows(rows)
}

// legacyRow returns the cells of one sheet row with trailing blanks trimmed.
// Rows the sheet never mentions come back nil.
func legacyRow(sheet *xls.WorkSheet, i int) (cells []string) {
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()

	row := sheet.Row(i)
	last := row.LastCol()
	if last <= 0 {
		last = xlsMaxScanCol
	}

	cells = make([]string, 0, last+1)
	for c := 0; c <= last; c++ {
		cells = append(cells, row.Col(c))
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

// checkCompoundFile verifies that the directory and workbook stream chains
// stay inside their allocation tables and terminate.
func checkCompoundFile(data []byte) error {
	if len(data) < oleHeaderSize || !isCompoundFile(data) {
		return fmt.Errorf("%w: missing header", errBrokenCompoundFile)
	}

	le := binary.LittleEndian
	if le.Uint16(data[28:]) != 0xFFFE || le.Uint16(data[30:]) != 9 {
		return fmt.Errorf("%w: unsupported sector layout", errBrokenCompoundFile)
	}

	var (
		fatSectors = le.Uint32(data[44:])
		dirStart   = le.Uint32(data[48:])
		cutoff     = le.Uint32(data[56:])
		miniStart  = le.Uint32(data[60:])
		miniCount  = le.Uint32(data[64:])
		difStart   = le.Uint32(data[68:])
	)
	if fatSectors == 0 || fatSectors > 109 || difStart != oleEndOfChain {
		return fmt.Errorf("%w: allocation table too large", errBrokenCompoundFile)
	}

	var fat []uint32
	for i := uint32(0); i < fatSectors; i++ {
		sector, ok := oleSector(data, le.Uint32(data[76+4*i:]))
		if !ok {
			return fmt.Errorf("%w: allocation table outside file", errBrokenCompoundFile)
		}
		for off := 0; off < oleSectorSize; off += 4 {
			fat = append(fat, le.Uint32(sector[off:]))
		}
	}

	dirChain, err := walkChain(fat, dirStart)
	if err != nil {
		return fmt.Errorf("%w: directory: %v", errBrokenCompoundFile, err)
	}

	var book, root []byte
	for _, sid := range dirChain {
		sector, ok := oleSector(data, sid)
		if !ok {
			return fmt.Errorf("%w: directory outside file", errBrokenCompoundFile)
		}
		for off := 0; off < oleSectorSize; off += oleEntrySize {
			entry := sector[off : off+oleEntrySize]
			if entry[66] == 0 {
				break
			}
			switch oleEntryName(entry) {
			case "Workbook", "Book":
				book = entry
			case "Root Entry":
				root = entry
			}
		}
	}
	if book == nil {
		return fmt.Errorf("%w: no workbook stream", errBrokenCompoundFile)
	}

	start, size := le.Uint32(book[116:]), le.Uint32(book[120:])
	if size >= cutoff {
		if _, err := walkChain(fat, start); err != nil {
			return fmt.Errorf("%w: workbook: %v", errBrokenCompoundFile, err)
		}
		return nil
	}

	// Small streams live in the mini stream, itself a chain in the main table.
	if root == nil {
		return fmt.Errorf("%w: no root entry", errBrokenCompoundFile)
	}
	if _, err := walkChain(fat, le.Uint32(root[116:])); err != nil {
		return fmt.Errorf("%w: mini stream: %v", errBrokenCompoundFile, err)
	}
	var miniFat []uint32
	if miniCount > 0 {
		sector, ok := oleSector(data, miniStart)
		if !ok {
			return fmt.Errorf("%w: mini table outside file", errBrokenCompoundFile)
		}
		// The reader repeats the first mini table sector, minus its last slot.
		for i := uint32(0); i < miniCount; i++ {
			for off := 0; off < oleSectorSize-4; off += 4 {
				miniFat = append(miniFat, le.Uint32(sector[off:]))
			}
		}
	}
	if _, err := walkChain(miniFat, start); err != nil {
		return fmt.Errorf("%w: workbook: %v", errBrokenCompoundFile, err)
	}
	return nil
}

// walkChain follows a sector chain to its end marker.
func walkChain(table []uint32, sid uint32) ([]uint32, error) {
	var chain []uint32
	for sid != oleEndOfChain {
		if int(sid) >= len(table) || len(chain) > len(table) {
			return nil, fmt.Errorf("bad sector %#x", sid)
		}
		chain = append(chain, sid)
		sid = table[sid]
	}
	return chain, nil
}

func oleSector(data []byte, sid uint32) ([]byte, bool) {
	off := oleHeaderSize + int64(sid)*oleSectorSize
	if off+oleSectorSize > int64(len(data)) {
		return nil, false
	}
	return data[off : off+oleSectorSize], true
}

func oleEntryName(entry []byte) string {
	n := int(binary.LittleEndian.Uint16(entry[64:]))
	if n < 2 || n > 64 {
		return ""
	}
	units := make([]uint16, n/2-1)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(entry[2*i:])
	}
	return string(utf16.Decode(units))
}
