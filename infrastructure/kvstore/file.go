package kvstore

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"syscall"
)

// FileStore persiste cada chave como um arquivo dentro de um diretório de
// dados, o análogo local do armazenamento por navegador do sistema original.
// Chaves são escapadas para nomes de arquivo seguros.
type FileStore struct {
	dir string
}

// NewFileStore cria (se necessário) o diretório de dados e devolve o Store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key))
}

func (f *FileStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (f *FileStore) Set(key string, value []byte) error {
	err := os.WriteFile(f.path(key), value, 0o644)
	if err != nil && errors.Is(err, syscall.ENOSPC) {
		return ErrQuotaExceeded
	}
	return err
}

func (f *FileStore) Remove(key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FileStore) Keys() ([]string, error) {
	dirEntries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}

		key, err := url.PathUnescape(dirEntry.Name())
		if err != nil {
			// Arquivo estranho no diretório de dados, não é uma chave nossa
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (f *FileStore) Size() (int64, error) {
	dirEntries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}

		info, err := dirEntry.Info()
		if err != nil {
			continue
		}
		total += int64(len(dirEntry.Name())) + info.Size()
	}
	return total, nil
}
