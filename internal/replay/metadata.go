package replay

import "strconv"

// parseMetadata reads the optional metadata object. Missing or oddly shaped
// members are ignored; metadata never fails a decode.
func parseMetadata(value any) Metadata {
	var meta Metadata
	obj, ok := value.(map[string]any)
	if !ok {
		return meta
	}
	meta.StartAt, _ = obj["startAt"].(string)
	meta.PlayedOn, _ = obj["playedOn"].(string)

	players, ok := obj["players"].(map[string]any)
	if !ok {
		return meta
	}
	for key, raw := range players {
		port, err := strconv.Atoi(key)
		if err != nil || port < 0 || port >= NumPorts {
			continue
		}
		player, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		names, ok := player["names"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := names["netplay"].(string)
		code, _ := names["code"].(string)
		if name == "" && code == "" {
			continue
		}
		meta.Players[port] = &MetadataPlayer{Name: name, Code: code}
	}
	return meta
}
