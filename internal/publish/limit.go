package publish

// EnforceAssetLimit fails with *AssetLimitExceededError when uniqueAssetCount
// is above limit.
func EnforceAssetLimit(uniqueAssetCount, limit int) error {
	if uniqueAssetCount > limit {
		return &AssetLimitExceededError{Count: uniqueAssetCount, Limit: limit}
	}
	return nil
}
