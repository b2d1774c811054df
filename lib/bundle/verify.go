package bundle

import (
	"archive/zip"
	"encoding/json"
	"io"
	"sort"

	"github.com/pkg/errors"
)

type HashMismatch struct {
	Path     string `json:"path"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type VerifyResult struct {
	Manifest        Manifest       `json:"manifest"`
	MissingFiles    []string       `json:"missing_files"`
	UndeclaredFiles []string       `json:"undeclared_files"`
	HashMismatches  []HashMismatch `json:"hash_mismatches"`
}

func (r VerifyResult) OK() bool {
	return len(r.MissingFiles) == 0 && len(r.UndeclaredFiles) == 0 && len(r.HashMismatches) == 0
}

// Verify сверяет содержимое архива с дайджестами из манифеста
func Verify(r io.ReaderAt, size int64) (VerifyResult, error) {
	contents, err := ReadFiles(r, size)
	if err != nil {
		return VerifyResult{}, err
	}
	manifestData, ok := contents[ManifestPath]
	if !ok {
		return VerifyResult{}, errors.New("в архиве отсутствует манифест")
	}
	result := VerifyResult{
		MissingFiles:    []string{},
		UndeclaredFiles: []string{},
		HashMismatches:  []HashMismatch{},
	}
	if err = json.Unmarshal(manifestData, &result.Manifest); err != nil {
		return VerifyResult{}, errors.Wrap(err, "ошибка разбора манифеста")
	}

	declared := map[string]bool{ManifestPath: true}
	for _, item := range result.Manifest.Files {
		declared[item.Path] = true
		data, ok := contents[item.Path]
		if !ok {
			result.MissingFiles = append(result.MissingFiles, item.Path)
			continue
		}
		if actual := digest(data); actual != item.SHA256 {
			result.HashMismatches = append(result.HashMismatches, HashMismatch{Path: item.Path, Expected: item.SHA256, Actual: actual})
		}
	}
	for path := range contents {
		if !declared[path] {
			result.UndeclaredFiles = append(result.UndeclaredFiles, path)
		}
	}
	sort.Strings(result.MissingFiles)
	sort.Strings(result.UndeclaredFiles)
	sort.Slice(result.HashMismatches, func(a, b int) bool { return result.HashMismatches[a].Path < result.HashMismatches[b].Path })
	return result, nil
}

func readFile(item *zip.File) ([]byte, error) {
	rc, err := item.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "ошибка открытия файла %s", item.Name)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "ошибка чтения файла %s", item.Name)
	}
	return data, nil
}

// ReadFiles возвращает содержимое всех файлов архива
func ReadFiles(r io.ReaderAt, size int64) (map[string][]byte, error) {
	reader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка чтения архива")
	}
	result := make(map[string][]byte, len(reader.File))
	for _, item := range reader.File {
		data, err := readFile(item)
		if err != nil {
			return nil, err
		}
		result[item.Name] = data
	}
	return result, nil
}
