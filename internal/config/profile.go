package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/magiconair/properties"
	"github.com/spf13/viper"

	"wfstui/internal/model"
	"wfstui/internal/util"
)

// Profile keys. The names are shared with profiles written by older
// front-ends for the same tool, so they do not follow the flag names.
const (
	keyAllZeros         = "all_zero"
	keySuperblock       = "superblock_offset"
	keyBlockSize        = "blocksize"
	keyForce            = "force"
	keyIterations       = "iterations"
	keyLastZero         = "last_zero"
	keyNoPart           = "no_part"
	keyNoUnrm           = "no_undel"
	keyNoWfs            = "no_free"
	keyUseIoctl         = "no_cache"
	keyFilesystems      = "filesystems"
	keyWfsPath          = "wfs_path"
	keyIsMethod         = "is_method"
	keyMethod           = "method"
	keyNoWipeZeroBlocks = "no_wipe_zero_blocks"
	keyUseDedicated     = "use_dedicated"
	keyIsOrder          = "is_order"
	keyOrder            = "order"
)

// fsSeparator splits the filesystem list inside a single profile value.
const fsSeparator = "\x00"

// lockTimeout bounds how long WriteFile waits for another writer.
const lockTimeout = 10 * time.Second

// ReadFile loads the profile at path on top of base. Values that fail to
// parse are passed to onError and skipped; only I/O and syntax errors are
// returned.
func ReadFile(path string, base model.Options, onError func(err error, context string)) (model.Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, fmt.Errorf("opening profile %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, base, onError)
}

// Parse reads a profile from r on top of base.
func Parse(r io.Reader, base model.Options, onError func(err error, context string)) (model.Options, error) {
	if onError == nil {
		onError = func(error, string) {}
	}
	v, err := load(r)
	if err != nil {
		return base, fmt.Errorf("parsing profile: %w", err)
	}

	p := profileReader{v: v, onError: onError}
	opts := base
	opts.Filesystems = append([]string(nil), base.Filesystems...)

	p.readFlag(keyAllZeros, &opts.AllZeros)
	p.readInt64(keySuperblock, &opts.SuperblockOffset)
	p.readInt(keyBlockSize, &opts.BlockSize)
	p.readFlag(keyForce, &opts.Force)
	p.readInt(keyIterations, &opts.Iterations)
	p.readFlag(keyLastZero, &opts.LastZero)
	p.readFlag(keyNoPart, &opts.NoPart)
	p.readFlag(keyNoUnrm, &opts.NoUnrm)
	p.readFlag(keyNoWfs, &opts.NoWfs)
	p.readFlag(keyUseIoctl, &opts.UseIoctl)
	p.readFlag(keyNoWipeZeroBlocks, &opts.NoWipeZeroBlocks)
	p.readFlag(keyUseDedicated, &opts.UseDedicated)

	if v.IsSet(keyFilesystems) {
		for _, fs := range strings.Split(v.GetString(keyFilesystems), fsSeparator) {
			if fs = strings.TrimSpace(fs); fs != "" {
				opts.Filesystems = append(opts.Filesystems, fs)
			}
		}
	}
	if v.IsSet(keyWfsPath) {
		if path := strings.TrimSpace(v.GetString(keyWfsPath)); path != "" {
			opts.WfsPath = path
		}
	}

	var isMethod, isOrder bool
	p.readFlag(keyIsMethod, &isMethod)
	p.readFlag(keyIsOrder, &isOrder)
	if isMethod {
		opts.Method = strings.TrimSpace(v.GetString(keyMethod))
	}
	if isOrder {
		opts.Order = strings.TrimSpace(v.GetString(keyOrder))
	}
	return opts, nil
}

// load reads key = value lines into a fresh viper instance. Values are
// taken verbatim: backslashes are doubled before lexing so the properties
// escapes collapse back to the original text, and ${} expansion is off.
// Profiles hold Windows paths and device names such as \\.\D: that the
// escaping rules would otherwise mangle.
func load(r io.Reader) (*viper.Viper, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	props, err := l.LoadBytes(bytes.ReplaceAll(raw, []byte(`\`), []byte(`\\`)))
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, props.Len())
	for key, value := range props.Map() {
		values[strings.ToLower(key)] = value
	}
	v := viper.New()
	if err := v.MergeConfigMap(values); err != nil {
		return nil, err
	}
	return v, nil
}

type profileReader struct {
	v       *viper.Viper
	onError func(err error, context string)
}

func (p profileReader) raw(key string) (string, bool) {
	if !p.v.IsSet(key) {
		return "", false
	}
	return strings.TrimSpace(p.v.GetString(key)), true
}

func (p profileReader) readInt(key string, dst *int) {
	s, ok := p.raw(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.onError(err, "profile: "+key)
		return
	}
	*dst = n
}

func (p profileReader) readInt64(key string, dst *int64) {
	s, ok := p.raw(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		p.onError(err, "profile: "+key)
		return
	}
	*dst = n
}

// readFlag reads a boolean stored as an integer; any non-zero value is true.
func (p profileReader) readFlag(key string, dst *bool) {
	s, ok := p.raw(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.onError(err, "profile: "+key)
		return
	}
	*dst = n != 0
}

// Encode renders opts in profile format with keys in a fixed order.
func Encode(opts model.Options) []byte {
	var b bytes.Buffer
	put := func(key, value string) {
		fmt.Fprintf(&b, "%s = %s\n", key, value)
	}
	flag := func(on bool) string {
		if on {
			return "1"
		}
		return "0"
	}

	put(keyAllZeros, flag(opts.AllZeros))
	put(keySuperblock, strconv.FormatInt(opts.SuperblockOffset, 10))
	put(keyBlockSize, strconv.Itoa(opts.BlockSize))
	put(keyForce, flag(opts.Force))
	put(keyIterations, strconv.Itoa(opts.Iterations))
	put(keyLastZero, flag(opts.LastZero))
	put(keyNoPart, flag(opts.NoPart))
	put(keyNoUnrm, flag(opts.NoUnrm))
	put(keyNoWfs, flag(opts.NoWfs))
	put(keyUseIoctl, flag(opts.UseIoctl))
	put(keyFilesystems, strings.Join(opts.Filesystems, fsSeparator))
	put(keyWfsPath, opts.WfsPath)
	put(keyIsMethod, flag(opts.Method != ""))
	put(keyMethod, opts.Method)
	put(keyNoWipeZeroBlocks, flag(opts.NoWipeZeroBlocks))
	put(keyUseDedicated, flag(opts.UseDedicated))
	put(keyIsOrder, flag(opts.Order != ""))
	put(keyOrder, opts.Order)
	return b.Bytes()
}

// WriteFile saves opts to path. Concurrent writers are serialized with an
// advisory lock on path+".lock" and the file is replaced atomically.
func WriteFile(path string, opts model.Options) error {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	return withFileLock(path, func() error {
		return util.WriteFileAtomic(path, Encode(opts), 0o644)
	})
}

func withFileLock(path string, fn func() error) error {
	fl := flock.New(path + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquiring file lock for %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("timed out acquiring file lock for %s", path)
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}
