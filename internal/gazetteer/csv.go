package gazetteer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fooddata/fhrs-reconcile/internal/normalize"
)

// The extracted product keeps the column names in a separate header file;
// the data files are bare rows.
const (
	headerFile = "DOC/OS_Open_Names_Header.csv"
	dataDir    = "DATA"
)

var requiredColumns = []string{
	"ID", "NAME1", "NAME2", "TYPE", "LOCAL_TYPE", "POSTCODE_DISTRICT",
}

// ReadProduct reads an extracted OS Open Names distribution rooted at dir,
// keeping populated places and named roads and discarding everything else.
func ReadProduct(dir string) (places, roads []Name, err error) {
	cols, err := readHeader(filepath.Join(dir, headerFile))
	if err != nil {
		return nil, nil, err
	}

	entries, err := os.ReadDir(filepath.Join(dir, dataDir))
	if err != nil {
		return nil, nil, eris.Wrapf(err, "gazetteer: read data dir in %s", dir)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		path := filepath.Join(dir, dataDir, entry.Name())
		p, r, err := readDataFile(path, cols)
		if err != nil {
			return nil, nil, err
		}
		places = append(places, p...)
		roads = append(roads, r...)
		zap.L().Debug("gazetteer: data file read",
			zap.String("file", entry.Name()),
			zap.Int("places", len(p)),
			zap.Int("roads", len(r)),
		)
	}
	return places, roads, nil
}

// readHeader maps column names to their positions, checking the columns
// the import relies on are all present.
func readHeader(path string) (map[string]int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "gazetteer: read header %s", path)
	}
	line := strings.TrimPrefix(string(raw), "\ufeff")
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}

	cols := make(map[string]int)
	for i, name := range strings.Split(line, ",") {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, eris.Errorf("gazetteer: header %s lacks column %s", path, name)
		}
	}
	return cols, nil
}

func readDataFile(path string, cols map[string]int) (places, roads []Name, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "gazetteer: open %s", path)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if head, _ := br.Peek(3); bytes.Equal(head, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3) //nolint:errcheck
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrapf(err, "gazetteer: parse %s", path)
		}
		field := func(name string) string {
			i := cols[name]
			if i >= len(record) {
				return ""
			}
			return record[i]
		}

		switch {
		case field("TYPE") == "populatedPlace":
			places = append(places, nameOf(field, field("LOCAL_TYPE")))
		case field("TYPE") == "transportNetwork" && field("LOCAL_TYPE") == "Named Road":
			roads = append(roads, nameOf(field, ""))
		}
	}
	return places, roads, nil
}

func nameOf(field func(string) string, placeType string) Name {
	return Name{
		ID:           field("ID"),
		Name:         field("NAME1"),
		NameStd:      normalize.Place(field("NAME1")),
		AltNameStd:   normalize.Place(field("NAME2")),
		PostcodeArea: PostcodeAreaOf(field("POSTCODE_DISTRICT")),
		PlaceType:    placeType,
	}
}
