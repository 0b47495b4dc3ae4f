package streamable

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// Linearize 对给定的直接基类序列执行 C3 线性化，返回不含新类自身的祖先顺序。
// 每个基类的 MRO 已包含其自身。无法得到一致顺序时返回 ErrInconsistentHierarchy。
func Linearize(name string, bases ...*Class) ([]*Class, error) {
	seqs := make([][]*Class, 0, len(bases)+1)
	for _, base := range bases {
		if base == nil {
			return nil, merr.WrapErrParameterMissing("base", "nil base class for "+name)
		}
		seqs = append(seqs, slices.Clone(base.mro))
	}
	seqs = append(seqs, slices.Clone(bases))

	var result []*Class
	for {
		seqs = lo.Filter(seqs, func(seq []*Class, _ int) bool { return len(seq) > 0 })
		if len(seqs) == 0 {
			return result, nil
		}

		var head *Class
		for _, seq := range seqs {
			if !inAnyTail(seq[0], seqs) {
				head = seq[0]
				break
			}
		}
		if head == nil {
			return nil, merr.WrapErrInconsistentHierarchy(name, "pending "+describeHeads(seqs))
		}

		result = append(result, head)
		for i := range seqs {
			if seqs[i][0] == head {
				seqs[i] = seqs[i][1:]
			}
		}
	}
}

func inAnyTail(c *Class, seqs [][]*Class) bool {
	for _, seq := range seqs {
		if slices.Contains(seq[1:], c) {
			return true
		}
	}
	return false
}

func describeHeads(seqs [][]*Class) string {
	heads := lo.Uniq(lo.Map(seqs, func(seq []*Class, _ int) string { return seq[0].QualifiedName() }))
	return strings.Join(heads, ", ")
}
