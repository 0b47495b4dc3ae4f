package fileio

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

var (
	// knownExtensions 按从长到短排列，AppendToFileName 优先匹配完整的复合扩展名。
	knownExtensions = []string{"tar.gz", "tar.zst", "tgz", "tar", "rdc.gz", "rdc.zst", "rdc", "json", "pb"}
	retryExtensions = []string{"gz", "zst"}
)

// extRE 匹配以 exts 之一结尾的文件名，分组依次为：前缀、扩展名、扩展名后的数字后缀。
func extRE(exts []string, ignoreNumbers bool) *regexp.Regexp {
	quoted := lo.Map(exts, func(e string, _ int) string {
		return regexp.QuoteMeta(strings.TrimPrefix(e, "."))
	})
	suffix := `()`
	if ignoreNumbers {
		suffix = `(\.[0-9]*|)`
	}
	return regexp.MustCompile(`^(.*)\.(` + strings.Join(quoted, "|") + `)` + suffix + `$`)
}

// GetExtension 返回文件名最后 nDots 段扩展名（不含开头的点），nDots < 0 时返回全部扩展名。
// 只考虑文件名本身，目录中的点被忽略。
func GetExtension(filename string, nDots int) string {
	parts := strings.Split(filepath.Base(filename), ".")
	n := len(parts) - 1
	if n <= 0 || nDots == 0 {
		return ""
	}
	if nDots < 0 || nDots > n {
		nDots = n
	}
	return strings.Join(parts[len(parts)-nDots:], ".")
}

// EnsureExtension 确保 filename 以 ext 结尾，ext 可以用 '|' 给出多个可接受的扩展名，
// 不匹配时补上第一个。复合扩展名（如 rdc.gz）只补缺失的部分，扩展名后的数字后缀（如 .1）被忽略。
func EnsureExtension(filename, ext string) string {
	exts := lo.Map(strings.Split(ext, "|"), func(e string, _ int) string {
		return strings.TrimPrefix(e, ".")
	})
	if extRE(exts, true).MatchString(filename) {
		return filename
	}
	composed := strings.Split(exts[0], ".")
	for i := len(composed) - 1; i > 0; i-- {
		if strings.HasSuffix(filename, "."+strings.Join(composed[:i], ".")) {
			return filename + "." + strings.Join(composed[i:], ".")
		}
	}
	return filename + "." + exts[0]
}

// AppendToFileName 在扩展名之前追加 s，使用 "_" 作为分隔符。
func AppendToFileName(filename, s string) string {
	return AppendToFileNameSep(filename, s, "_")
}

// AppendToFileNameSep 同 AppendToFileName，分隔符为 sep。
// 前缀已以 sep 结尾或 s 以 sep 开头时不再添加分隔符。
func AppendToFileNameSep(filename, s, sep string) string {
	join := func(prefix string) string {
		if strings.HasSuffix(prefix, sep) || strings.HasPrefix(s, sep) {
			return prefix + s
		}
		return prefix + sep + s
	}
	for _, exts := range [][]string{knownExtensions, retryExtensions} {
		if m := extRE(exts, true).FindStringSubmatch(filename); m != nil {
			return join(m[1]) + "." + m[2] + m[3]
		}
	}
	return join(filename)
}

// IsTar 依据扩展名判断 filename 是否为 tar 归档。
func IsTar(filename string) bool {
	return extRE([]string{"tar", "tgz", "tar.gz"}, false).MatchString(filename)
}

func isGzipTar(filename string) bool {
	return extRE([]string{"tgz", "tar.gz"}, false).MatchString(filename)
}

// ExpandFolders 将 paths 中的目录递归展开为其中的文件，返回与任一 filters（glob，匹配文件名）
// 相符的文件绝对路径，未给出 filters 时返回全部文件。结果去重并保持发现顺序。
func ExpandFolders(paths []string, filters ...string) ([]string, error) {
	groups, err := ExpandFoldersByFilter(paths, filters...)
	if err != nil {
		return nil, err
	}
	return lo.Uniq(lo.Flatten(groups)), nil
}

// ExpandFoldersByFilter 同 ExpandFolders，但按 filters 分组返回，每个 filter 一组。
func ExpandFoldersByFilter(paths []string, filters ...string) ([][]string, error) {
	if len(filters) == 0 {
		filters = []string{"*"}
	}
	for _, filter := range filters {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, merr.WrapErrParameterInvalidMsg("bad filter %q: %s", filter, err.Error())
		}
	}
	out := make([][]string, len(filters))
	add := func(path string) {
		base := filepath.Base(path)
		for i, filter := range filters {
			if ok, _ := filepath.Match(filter, base); ok {
				out[i] = append(out[i], path)
			}
		}
	}

	for _, path := range paths {
		path, err := filepath.Abs(os.ExpandEnv(path))
		if err != nil {
			return nil, merr.WrapErrIoFailed(path, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, ioErr(path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, ioErr(path, err)
		}
	}
	return out, nil
}

// WaitForFile 轮询直到 filename 存在且大小为 size（size < 0 时只要求存在），
// 轮询间隔按指数退避增长，ctx 结束或超过 maxWait 时返回错误。
func WaitForFile(ctx context.Context, filename string, size int64, maxWait time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = maxWait

	return backoff.Retry(func() error {
		info, err := os.Stat(filename)
		if err != nil {
			return ioErr(filename, err)
		}
		if info.IsDir() {
			return backoff.Permanent(merr.WrapErrParameterInvalidMsg("%s is a directory", filename))
		}
		if size >= 0 && info.Size() != size {
			return merr.WrapErrIoUnexpectEOF(filename, errors.Newf("size %d, expected %d", info.Size(), size))
		}
		return nil
	}, backoff.WithContext(b, ctx))
}
