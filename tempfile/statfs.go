package tempfile

import "golang.org/x/sys/unix"

// freeSpace reports the number of bytes available to unprivileged users on
// the filesystem holding dir. Directories that cannot be statted report zero
// so they are skipped rather than trusted.
func freeSpace(dir string) uint64 {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0
	}
	return st.Bavail * uint64(st.Bsize)
}
