package index

import (
	"errors"
	"slices"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/unbalanced"
)

// degree is the node capacity hint given to the tree.
const degree = 8

// treeComparer orders index keys with a [domain.Comparer] and tells stored
// identifiers apart by equality.
type treeComparer struct {
	comparer domain.Comparer
}

// CompareKeys implements bst.Comparer.
func (tc treeComparer) CompareKeys(a, b data.Value) (int, error) {
	return tc.comparer.Compare(a, b), nil
}

// CompareValues implements bst.Comparer.
func (tc treeComparer) CompareValues(a, b string) (bool, error) {
	return a == b, nil
}

// tree is the sorted map from key to identifiers backing an [Index].
type tree struct {
	unique bool
	cmp    bst.Comparer[data.Value, string]
	root   bst.BST[data.Value, string]
}

func newTree(unique bool, comparer domain.Comparer) *tree {
	t := &tree{unique: unique, cmp: treeComparer{comparer: comparer}}
	t.reset()
	return t
}

func (t *tree) reset() {
	t.root = unbalanced.NewBST(t.unique, degree, t.cmp)
}

// insert adds id under key. The returned bool reports a unique constraint
// violation.
func (t *tree) insert(key data.Value, id string) (bool, error) {
	err := t.root.Insert(key, id)
	if err == nil {
		return false, nil
	}
	if errors.As(err, new(bst.ErrUniqueViolated)) {
		return true, err
	}
	return false, err
}

func (t *tree) delete(key data.Value, id string) {
	_ = t.root.Delete(key, &id)
}

func (t *tree) search(key data.Value) ([]string, error) {
	found, err := t.root.Search(key)
	if err != nil || found == nil {
		return nil, err
	}
	return slices.Clone(found.Values), nil
}

func (t *tree) between(gt, lt *bst.Bound[data.Value]) ([]string, error) {
	var res []string
	for id, err := range t.root.Query(bst.Query[data.Value]{GreaterThan: gt, LowerThan: lt}) {
		if err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, nil
}

func (t *tree) all() []string {
	var res []string
	for id := range t.root.GetAll() {
		res = append(res, id)
	}
	return res
}

func (t *tree) numberOfKeys() int {
	return t.root.GetNumberOfKeys()
}
