package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/datenlord/sdk-go/pkg/sdk"
	"github.com/datenlord/sdk-go/pkg/storage"
)

const usage = `Usage: datenlord-cli [flags] <command> [args]

Commands:
  exists <path>                  Check whether a path exists
  mkdir <path>                   Create a directory (parent must exist)
  rmdir <path>                   Remove an empty directory
  rmdir-r <path>                 Remove a directory recursively
  rename <src> <dst>             Move a file or directory
  create <path>                  Create an empty file
  stat <path>                    Print file metadata
  write <path> <content>         Write content to a file
  read <path>                    Print file content
  upload <local> <remote>        Copy a local file to the store (no overwrite)
  upload-f <local> <remote>      Copy a local file to the store (overwrite)
  download <remote> <local>      Copy a file from the store to a local path
  demo                           Walk every operation against a scratch dir

Flags:
`

func main() {
	configStr := flag.String("config", "", "Configuration: inline YAML, @/path/to/file.yaml, or a file path (empty = defaults)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()

	client, err := sdk.New(ctx, *configStr)
	if err != nil {
		fail(err)
	}
	defer client.Close()

	if err := run(ctx, client, args[0], args[1:]); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error [%s]: %v\n", storage.CodeOf(err), err)
	os.Exit(1)
}

func run(ctx context.Context, client *sdk.Client, command string, args []string) error {
	switch command {
	case "exists":
		path := need(args, 1)[0]
		exists, err := client.Exists(ctx, path)
		if err != nil {
			return err
		}
		fmt.Println(exists)
		return nil

	case "mkdir":
		return client.MkDir(ctx, need(args, 1)[0])

	case "rmdir":
		return client.DeleteDir(ctx, need(args, 1)[0], false)

	case "rmdir-r":
		return client.DeleteDir(ctx, need(args, 1)[0], true)

	case "rename":
		a := need(args, 2)
		return client.RenamePath(ctx, a[0], a[1])

	case "create":
		return client.CreateFile(ctx, need(args, 1)[0])

	case "stat":
		stat, err := client.Stat(ctx, need(args, 1)[0])
		if err != nil {
			return err
		}
		printStat(stat)
		return nil

	case "write":
		a := need(args, 2)
		return client.WriteFile(ctx, a[0], []byte(a[1]))

	case "read":
		data, err := client.ReadFile(ctx, need(args, 1)[0])
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		return nil

	case "upload":
		a := need(args, 2)
		return client.CopyFromLocalFile(ctx, false, a[0], a[1])

	case "upload-f":
		a := need(args, 2)
		return client.CopyFromLocalFile(ctx, true, a[0], a[1])

	case "download":
		a := need(args, 2)
		return client.CopyToLocalFile(ctx, a[0], a[1])

	case "demo":
		return demo(ctx, client)

	default:
		flag.Usage()
		return storage.Errorf(storage.ErrInvalidArgument, "unknown command: %s", command)
	}
}

func need(args []string, n int) []string {
	if len(args) != n {
		flag.Usage()
		os.Exit(2)
	}
	return args
}

func printStat(stat *storage.FileStat) {
	fmt.Printf("ino:    %d\n", stat.Ino)
	fmt.Printf("size:   %d\n", stat.Size)
	fmt.Printf("blocks: %d\n", stat.Blocks)
	fmt.Printf("perm:   %s\n", strconv.FormatUint(uint64(stat.Perm), 8))
	fmt.Printf("nlink:  %d\n", stat.Nlink)
	fmt.Printf("uid:    %d\n", stat.UID)
	fmt.Printf("gid:    %d\n", stat.GID)
	fmt.Printf("rdev:   %d\n", stat.Rdev)
}

// demo walks every SDK operation against a scratch directory and cleans up
// after itself. Useful as a connectivity smoke test for a new configuration.
func demo(ctx context.Context, client *sdk.Client) error {
	const root = "/datenlord-cli-demo"

	fmt.Println("mkdir", root)
	if err := client.MkDir(ctx, root); err != nil {
		return err
	}

	exists, err := client.Exists(ctx, root)
	if err != nil {
		return err
	}
	fmt.Println("exists", root, "->", exists)

	file := root + "/hello.txt"
	fmt.Println("create", file)
	if err := client.CreateFile(ctx, file); err != nil {
		return err
	}

	content := []byte("hello, datenlord\n")
	fmt.Printf("write %s (%d bytes)\n", file, len(content))
	if err := client.WriteFile(ctx, file, content); err != nil {
		return err
	}

	stat, err := client.Stat(ctx, file)
	if err != nil {
		return err
	}
	fmt.Println("stat", file)
	printStat(stat)

	data, err := client.ReadFile(ctx, file)
	if err != nil {
		return err
	}
	fmt.Printf("read %s -> %q\n", file, data)

	renamed := root + "/renamed.txt"
	fmt.Println("rename", file, "->", renamed)
	if err := client.RenamePath(ctx, file, renamed); err != nil {
		return err
	}

	local, err := os.CreateTemp("", "datenlord-demo-*")
	if err != nil {
		return storage.Errorf(storage.ErrIOError, "failed to create temp file: %v", err)
	}
	localPath := local.Name()
	local.Close()
	defer os.Remove(localPath)

	fmt.Println("download", renamed, "->", localPath)
	if err := client.CopyToLocalFile(ctx, renamed, localPath); err != nil {
		return err
	}

	uploaded := root + "/uploaded.txt"
	fmt.Println("upload", localPath, "->", uploaded)
	if err := client.CopyFromLocalFile(ctx, false, localPath, uploaded); err != nil {
		return err
	}

	fmt.Println("rmdir-r", root)
	if err := client.DeleteDir(ctx, root, true); err != nil {
		return err
	}

	fmt.Println("demo complete")
	return nil
}
