package sort_test

import (
	"fmt"
	"slices"

	"github.com/exascience/pbb/pool"
	"github.com/exascience/pbb/sort"
)

type Person struct {
	Name string
	Age  int
}

func (p Person) String() string {
	return fmt.Sprintf("%s: %d", p.Name, p.Age)
}

// ByAge implements sort.SequentialSorter, sort.Sorter, and sort.StableSorter
// for []Person based on the Age field.
type ByAge []Person

func (a ByAge) SequentialSort(i, j int) {
	slices.SortStableFunc(a[i:j], func(x, y Person) int {
		return x.Age - y.Age
	})
}

func (a ByAge) Len() int           { return len(a) }
func (a ByAge) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ByAge) Less(i, j int) bool { return a[i].Age < a[j].Age }

func (a ByAge) NewTemp() sort.StableSorter { return make(ByAge, len(a)) }

func (a ByAge) Assign(source sort.StableSorter) func(i, j, len int) {
	dst, src := a, source.(ByAge)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

func Example() {
	p := pool.New(pool.WithWorkers(2))
	defer p.Close()

	people := []Person{
		{"Bob", 31},
		{"John", 42},
		{"Michael", 17},
		{"Jenny", 26},
	}

	fmt.Println(people)
	p.Arena(func(w *pool.Worker) { sort.Sort(w, ByAge(people)) })
	fmt.Println(people)

	people = []Person{
		{"Bob", 31},
		{"John", 42},
		{"Michael", 17},
		{"Jenny", 26},
	}

	fmt.Println(people)
	p.Arena(func(w *pool.Worker) { sort.StableSort(w, ByAge(people)) })
	fmt.Println(people)

	// Output:
	// [Bob: 31 John: 42 Michael: 17 Jenny: 26]
	// [Michael: 17 Jenny: 26 Bob: 31 John: 42]
	// [Bob: 31 John: 42 Michael: 17 Jenny: 26]
	// [Michael: 17 Jenny: 26 Bob: 31 John: 42]
}

func ExampleRadixSort() {
	p := pool.New(pool.WithWorkers(4))
	defer p.Close()

	keys := []uint32{5, 2, 7, 3, 1}
	sort.RadixSort(p, keys)
	fmt.Println(keys)

	// Output:
	// [1 2 3 5 7]
}
