// Package storage provides the filesystem operations used by the acquisition pipeline.
//
// Downloads are written through a PartialFile: bytes go to "<name>.part" and the
// file is renamed to "<name>" only after it has been flushed and closed. Aborting
// removes both names, so a file visible under its final name is always complete.
//
// A Manager works on any afero.Fs; NewManager uses the operating system filesystem.
//
// Usage:
//
//	store := storage.NewManager()
//	if err := store.EnsureDir(dir); err != nil {
//	    return err
//	}
//	sink, err := store.Create(filepath.Join(dir, "a_b.jpg"))
//	if err != nil {
//	    return err
//	}
//	if _, err := io.Copy(sink, body); err != nil {
//	    sink.Abort()
//	    return err
//	}
//	return sink.Commit()
package storage
