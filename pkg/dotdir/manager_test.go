package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/overlap/pkg/dotdir"
)

// chdir moves into dir for the rest of the current spec.
func chdir(dir string) {
	orig, err := os.Getwd()
	Expect(err).NotTo(HaveOccurred())
	Expect(os.Chdir(dir)).To(Succeed())
	DeferCleanup(func() { _ = os.Chdir(orig) })
}

var _ = Describe("Manager.Target", func() {
	var (
		root string
		m    *dotdir.Manager
	)

	BeforeEach(func() {
		var err error
		// EvalSymlinks keeps comparisons stable where the temp dir is a symlink
		root, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	Context("with an override", func() {
		It("creates a missing directory", func() {
			want := filepath.Join(root, "nested", "conf")

			got, err := m.Target(want)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
			Expect(want).To(BeADirectory())
		})

		It("makes relative paths absolute", func() {
			chdir(root)

			got, err := m.Target("rel")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(filepath.Join(root, "rel")))
		})

		It("wins over a local .overlap directory", func() {
			Expect(os.Mkdir(filepath.Join(root, dotdir.DirName), 0o755)).To(Succeed())
			chdir(root)

			got, err := m.Target(filepath.Join(root, "other"))
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(filepath.Join(root, "other")))
		})

		It("rejects a path that is a regular file", func() {
			file := filepath.Join(root, "config.toml")
			Expect(os.WriteFile(file, nil, 0o600)).To(Succeed())

			_, err := m.Target(file)
			Expect(err).To(MatchError(dotdir.ErrNotDirectory))
		})
	})

	Context("without an override", func() {
		It("uses ./.overlap when it exists", func() {
			local := filepath.Join(root, dotdir.DirName)
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			chdir(root)

			got, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(local))
		})

		It("ignores a local .overlap file and falls back to home", func() {
			work := filepath.Join(root, "work")
			Expect(os.Mkdir(work, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(work, dotdir.DirName), nil, 0o600)).To(Succeed())
			chdir(work)
			GinkgoT().Setenv("HOME", root)

			got, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(filepath.Join(root, dotdir.DirName)))
		})

		It("creates ~/.overlap when nothing local exists", func() {
			work := filepath.Join(root, "empty")
			Expect(os.Mkdir(work, 0o755)).To(Succeed())
			chdir(work)
			GinkgoT().Setenv("HOME", root)

			got, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(filepath.Join(root, dotdir.DirName)))
			Expect(got).To(BeADirectory())
		})
	})
})
