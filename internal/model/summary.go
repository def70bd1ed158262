package model

import "strings"

// Summary describes a constructed model for the inspect command and the
// HTTP API.
type Summary struct {
	Config     Config       `json:"config"`
	Parameters int          `json:"parameters"`
	Tensors    int          `json:"tensors"`
	Groups     []GroupCount `json:"groups"`
}

// GroupCount aggregates parameters under one top-level component
// (src_embed, encoder, decoder, ...).
type GroupCount struct {
	Name       string `json:"name"`
	Tensors    int    `json:"tensors"`
	Parameters int    `json:"parameters"`
}

func (t *Transformer) Summary() Summary {
	s := Summary{Config: t.cfg, Tensors: len(t.params)}
	index := make(map[string]int)
	for _, p := range t.params {
		group, _, _ := strings.Cut(p.Name, ".")
		i, ok := index[group]
		if !ok {
			i = len(s.Groups)
			index[group] = i
			s.Groups = append(s.Groups, GroupCount{Name: group})
		}
		s.Groups[i].Tensors++
		s.Groups[i].Parameters += p.Size()
		s.Parameters += p.Size()
	}
	return s
}
