package diff3

// matchPairs aligns two line slices with the Myers shortest-edit-script
// algorithm and returns the matched (equal) line pairs as (aIndex,
// bIndex) tuples, ascending and strictly monotonic in both coordinates.
//
// Runs in O((N+M)*D) time where D is the minimum edit distance.
func matchPairs(a, b []string) [][2]int {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}

	limit := n + m
	offset := limit
	width := 2*limit + 1

	// frontier[k+offset] is the furthest x reached on diagonal k.
	frontier := make([]int, width)
	var snapshots [][]int

	for d := 0; d <= limit; d++ {
		for k := -d; k <= d; k += 2 {
			idx := k + offset
			var x int
			if k == -d || (k != d && frontier[idx-1] < frontier[idx+1]) {
				x = frontier[idx+1] // down: insert from b
			} else {
				x = frontier[idx-1] + 1 // right: delete from a
			}
			y := x - k

			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			frontier[idx] = x

			if x >= n && y >= m {
				snap := make([]int, width)
				copy(snap, frontier)
				snapshots = append(snapshots, snap)
				return backtrackMatches(snapshots, a, b, d, offset)
			}
		}
		snap := make([]int, width)
		copy(snap, frontier)
		snapshots = append(snapshots, snap)
	}
	return nil
}

// backtrackMatches walks the frontier snapshots backwards, collecting
// the diagonal (equal) steps.
func backtrackMatches(snapshots [][]int, a, b []string, dFinal, offset int) [][2]int {
	x, y := len(a), len(b)
	var rev [][2]int

	for d := dFinal; d > 0; d-- {
		k := x - y
		prev := snapshots[d-1]

		var prevK int
		if k == -d || (k != d && prev[k-1+offset] < prev[k+1+offset]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := prev[prevK+offset]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			rev = append(rev, [2]int{x, y})
		}
		if prevK == k-1 {
			x-- // delete from a
		} else {
			y-- // insert from b
		}
	}
	for x > 0 && y > 0 {
		x--
		y--
		rev = append(rev, [2]int{x, y})
	}

	out := make([][2]int, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}
