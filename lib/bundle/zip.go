package bundle

import (
	"archive/zip"
	"bytes"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// archiveTimestamp - время модификации всех файлов архива, не зависит от момента сборки
var archiveTimestamp = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type file struct {
	Path string
	Data []byte
}

func writeArchive(files []file) ([]byte, error) {
	sorted := append([]file{}, files...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Path < sorted[b].Path })

	buffer := bytes.Buffer{}
	writer := zip.NewWriter(&buffer)
	for _, item := range sorted {
		header := &zip.FileHeader{
			Name:     item.Path,
			Method:   zip.Deflate,
			Modified: archiveTimestamp,
		}
		header.SetMode(0o644)
		w, err := writer.CreateHeader(header)
		if err != nil {
			return nil, errors.Wrapf(err, "ошибка добавления файла %s в архив", item.Path)
		}
		if _, err = w.Write(item.Data); err != nil {
			return nil, errors.Wrapf(err, "ошибка записи файла %s в архив", item.Path)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "ошибка завершения архива")
	}
	return buffer.Bytes(), nil
}
