package main

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Fixture paths, relative to the working directory.
const (
	dir1      = "./DIR1"
	dir2      = "./DIR1/DIR2"
	file1     = "./DIR1/DIR2/FILE1"
	file2     = "./DIR1/DIR2/FILE2"
	largeFile = "./LARGE_FILE"

	defaultDoNothing   = "./do_nothing"
	defaultGetKilled   = "./get_killed"
	defaultLargeOffset = 4000000
)

// fail annotates err with the operation and its target, giving
// "<op>: <target>: <system error>". A nil err stays nil.
func fail(err error, op, target string) error {
	if target == "" {
		return errors.Wrap(err, op)
	}
	return errors.Wrapf(err, "%s: %s", op, target)
}

func isNotExist(err error) bool {
	return errors.Is(err, unix.ENOENT)
}

// cleanup removes every fixture the runners create. It is idempotent.
func cleanup() error {
	for _, f := range []string{file2, file1} {
		if err := unix.Unlink(f); err != nil && !isNotExist(err) {
			return fail(err, "unlink", f)
		}
	}
	for _, d := range []string{dir2, dir1} {
		if err := unix.Rmdir(d); err != nil && !isNotExist(err) {
			return fail(err, "rmdir", d)
		}
	}
	return nil
}

// checkLargeFile verifies the read-only fixture used by lseek and read.
func checkLargeFile() error {
	if err := unix.Access(largeFile, unix.R_OK); err != nil {
		return errors.Wrap(err, largeFile)
	}
	return nil
}

func largeFileSize() (int64, error) {
	var st unix.Stat_t
	if err := unix.Stat(largeFile, &st); err != nil {
		return 0, fail(err, "stat", largeFile)
	}
	return st.Size, nil
}
