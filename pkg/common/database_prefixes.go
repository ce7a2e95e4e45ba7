package common

const (
	StorePrefixHealth           byte = 0
	StorePrefixBlocks           byte = 1
	StorePrefixBlockMetadata    byte = 2
	StorePrefixChildren         byte = 3
	StorePrefixMilestones       byte = 4
	StorePrefixSolidEntryPoints byte = 5
	StorePrefixUTXO             byte = 8
)
