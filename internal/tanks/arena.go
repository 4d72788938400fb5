package tanks

type spawn struct {
	x, y int
	dir  Dir
}

// spawnPoints: four corners, then the middle of the top and bottom rows.
func spawnPoints(w, h int) []spawn {
	return []spawn{
		{1, 1, DirRight},
		{w - 2, 1, DirLeft},
		{1, h - 2, DirRight},
		{w - 2, h - 2, DirLeft},
		{w / 2, 1, DirDown},
		{w / 2, h - 2, DirUp},
	}
}

// GenerateArena lays out METAL pillars on a 4x4 lattice and 2x2 BRICK clusters,
// leaves the outer ring open and clears the 3x3 block around every spawn.
func GenerateArena(w, h int) []Tile {
	tiles := make([]Tile, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			switch {
			case x%4 == 0 && y%4 == 0:
				tiles[y*w+x] = TileMetal
			case ((x/2)*3+(y/2)*5)%7 == 0:
				tiles[y*w+x] = TileBrick
			}
		}
	}

	for _, sp := range spawnPoints(w, h) {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				x, y := sp.x+dx, sp.y+dy
				if x < 0 || x >= w || y < 0 || y >= h {
					continue
				}
				tiles[y*w+x] = TileEmpty
			}
		}
	}
	return tiles
}
