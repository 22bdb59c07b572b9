package main

import (
	"strconv"

	"golang.org/x/sys/unix"
)

const creatFlags = unix.O_CREAT | unix.O_WRONLY | unix.O_TRUNC

func benchMkdir(e *env, n int) (*report, error) {
	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := unix.Mkdir(dir1, 0o755); err != nil {
			return nil, fail(err, "mkdir", dir1)
		}
		if err := unix.Rmdir(dir1); err != nil {
			return nil, fail(err, "rmdir", dir1)
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "mkdirs"}, opCount{n, "rmdirs"}), nil
}

// benchCreat builds the directory scaffold and leaves FILE1 in it for the
// runners that follow.
func benchCreat(e *env, n int) (*report, error) {
	if err := unix.Mkdir(dir1, 0o755); err != nil {
		return nil, fail(err, "mkdir", dir1)
	}
	if err := unix.Mkdir(dir2, 0o755); err != nil {
		return nil, fail(err, "mkdir", dir2)
	}

	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		fd, err := unix.Open(file1, creatFlags, 0o644)
		if err != nil {
			return nil, fail(err, "creat", file1)
		}
		if err := unix.Close(fd); err != nil {
			return nil, fail(err, "close", file1)
		}
		if fd, err = unix.Open(file1, unix.O_RDONLY, 0); err != nil {
			return nil, fail(err, "open", file1)
		}
		if err := unix.Close(fd); err != nil {
			return nil, fail(err, "close", file1)
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "creats"}, opCount{n, "opens"}, opCount{2 * n, "closes"}), nil
}

func benchChdir(e *env, n int) (*report, error) {
	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := unix.Chdir(dir2); err != nil {
			return nil, fail(err, "chdir", dir2)
		}
		if err := unix.Chdir("../.."); err != nil {
			return nil, fail(err, "chdir", "../..")
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{2 * n, "chdirs"}), nil
}

func benchChown(e *env, n int) (*report, error) {
	fd, err := unix.Open(file1, creatFlags, 0o644)
	if err != nil {
		return nil, fail(err, "creat", file1)
	}
	if err := unix.Close(fd); err != nil {
		return nil, fail(err, "close", file1)
	}
	uid, gid := unix.Getuid(), unix.Getgid()

	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := unix.Chown(file1, uid, gid); err != nil {
			return nil, fail(err, "chown", file1)
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "chowns"}), nil
}

func benchLseek(e *env, n int) (*report, error) {
	fd, err := unix.Open(largeFile, unix.O_RDONLY, 0)
	if err != nil {
		return nil, fail(err, "open", largeFile)
	}
	defer unix.Close(fd)
	off := e.cfg.largeOffset

	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if _, err := unix.Seek(fd, off, unix.SEEK_DATA); err != nil {
			return nil, fail(err, "lseek", strconv.FormatInt(off, 10))
		}
		if _, err := unix.Seek(fd, 0, unix.SEEK_DATA); err != nil {
			return nil, fail(err, "lseek", "0")
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{2 * n, "lseeks"}), nil
}

func benchRead(e *env, n int) (*report, error) {
	fd, err := unix.Open(largeFile, unix.O_RDONLY, 0)
	if err != nil {
		return nil, fail(err, "open", largeFile)
	}
	defer unix.Close(fd)
	buf := make([]byte, 1)

	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if _, err := unix.Read(fd, buf); err != nil {
			return nil, fail(err, "read", largeFile)
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "reads(1 byte)"}), nil
}

func benchLink(e *env, n int) (*report, error) {
	_ = unix.Unlink(file2)

	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := unix.Link(file1, file2); err != nil {
			return nil, fail(err, "link", file2)
		}
		if err := unix.Unlink(file2); err != nil {
			return nil, fail(err, "unlink", file2)
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "links"}, opCount{n, "unlinks"}), nil
}

func benchStat(e *env, n int) (*report, error) {
	var st unix.Stat_t

	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := unix.Stat(file1, &st); err != nil {
			return nil, fail(err, "stat", file1)
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "stats"}), nil
}

// benchWrite is the last user of FILE1 and removes it.
func benchWrite(e *env, n int) (*report, error) {
	fd, err := unix.Open(file1, unix.O_WRONLY, 0)
	if err != nil {
		return nil, fail(err, "open", file1)
	}
	defer func() {
		unix.Close(fd)
		unix.Unlink(file1)
	}()
	buf := []byte{0}

	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if _, err := unix.Write(fd, buf); err != nil {
			return nil, fail(err, "write", file1)
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "writes(1 byte)"}), nil
}
