package featureflag

type Flag string

const (
	FlagDisableMergePass      Flag = "DISABLE_MERGE_PASS"
	FlagDisableSplitPass      Flag = "DISABLE_SPLIT_PASS"
	FlagDisableMeshGeneration Flag = "DISABLE_MESH_GENERATION"
)
