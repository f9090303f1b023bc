package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
)

type ZipBuilder struct{}

func NewZipBuilder() *ZipBuilder {
	return &ZipBuilder{}
}

// Build writes every regular file under sourceDir into a deflated zip at
// archivePath. Members are flattened to their base names and added in
// lexical walk order.
func (z *ZipBuilder) Build(ctx context.Context, sourceDir string, archivePath string) error {
	if err := z.build(ctx, sourceDir, archivePath); err != nil {
		return entity.NewError(entity.KindPackaging, fmt.Sprintf("package %s", sourceDir), err)
	}
	return nil
}

func (z *ZipBuilder) build(ctx context.Context, sourceDir string, archivePath string) error {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return fmt.Errorf("read source dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", sourceDir)
	}

	zipFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)

	err = filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := addFileToZip(zipWriter, path); err != nil {
			return fmt.Errorf("add %s to zip: %w", path, err)
		}
		return nil
	})
	if err != nil {
		zipWriter.Close()
		return err
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return zipFile.Close()
}

func addFileToZip(zw *zip.Writer, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = filepath.Base(filename)
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
