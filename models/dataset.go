package models

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/cashvision/common"
)

// dataset mirrors the parts of an Ultralytics dataset file we read.
// "names" is either a list or an index->name map.
type dataset struct {
	Names yaml.Node `yaml:"names"`
}

// LoadClassSet reads the class names from an Ultralytics dataset YAML file
// (the data.yaml used to train the model).
//
// Arguments:
//   - path: Path to the dataset file.
//
// Returns:
//   - *ClassSet: The classes in model index order.
//   - error: A FileNotFoundError when the file is missing, or a parse error.
func LoadClassSet(path string) (*ClassSet, error) {
	if err := common.CheckFile("classes", path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read classes %s", path)
	}
	set, err := ParseClassSet(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse classes %s", path)
	}
	set.Name = path
	return set, nil
}

// ParseClassSet parses dataset YAML bytes into a class set.
func ParseClassSet(data []byte) (*ClassSet, error) {
	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, err
	}

	var labels []string
	switch ds.Names.Kind {
	case yaml.SequenceNode:
		if err := ds.Names.Decode(&labels); err != nil {
			return nil, errors.Wrap(err, "names")
		}
	case yaml.MappingNode:
		var byIndex map[int]string
		if err := ds.Names.Decode(&byIndex); err != nil {
			return nil, errors.Wrap(err, "names")
		}
		idxs := make([]int, 0, len(byIndex))
		for i := range byIndex {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)
		for want, got := range idxs {
			if want != got {
				return nil, errors.Errorf("names: missing index %d", want)
			}
			labels = append(labels, byIndex[got])
		}
	default:
		return nil, errors.New("names: expected a list or an index map")
	}

	if len(labels) == 0 {
		return nil, errors.New("names: no classes defined")
	}
	return NewClassSet("dataset", labels...), nil
}
