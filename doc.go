// Package gposix gives POSIX kernel resources deterministic ownership and a
// typed failure model.
//
// A Descriptor owns exactly one file descriptor. Ownership moves with
// Move, an independent kernel handle is obtained with Dup (close-on-exec
// is preserved), and Close is idempotent. File, Socket, LocalSocket and
// Directory embed a Descriptor and add the operations of their kind.
//
// Every failing system call is reported as a joomcode/errorx error whose
// type is fixed by the errno. Types fall into three categories:
//
//   - logic: programmer-correctable misuse such as BadDescriptor or InvalidArgument
//   - runtime: situational failures such as PermissionDenied or NotFound
//   - fatal: resource exhaustion such as OutOfMemory or TooManyOpenFiles
//
// Interrupted calls (EINTR) are retried and never reported. Close never
// reports an error.
//
// Descriptors are passed between processes over a LocalSocket:
//
//	a, b, err := gposix.SocketPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//	defer b.Close()
//
//	f, err := gposix.Open("/etc/hosts", unix.O_RDONLY, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	if err := a.SendDescriptor(f); err != nil {
//	    log.Fatal(err)
//	}
//	d, err := b.RecvDescriptor()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close()
//
// A MappedFile serves reads from a shared memory mapping that Sync keeps
// in step with the file size:
//
//	af, err := gposix.CreateAppendable("/tmp/log", 0644)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer af.Close()
//
//	off, _ := af.AppendString("abcde")
//	_ = af.Sync()
//	_, _ = af.Seek(off, unix.SEEK_SET)
//	data := af.ReadRest() // "abcde"
package gposix
