package receipt

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			filename  string
			data      []byte
			savedPath string
			err       error
		)

		BeforeEach(func() {
			filename = "struk_0001.jpg"
			data = []byte("receipt image bytes")
		})

		JustBeforeEach(func() {
			savedPath, err = storage.Save(filename, data)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the correct path", func() {
				Expect(savedPath).To(Equal(filename))
			})

			It("should save the file to disk", func() {
				filePath := filepath.Join(tmpDir, filename)
				Expect(filePath).To(BeAnExistingFile())
			})
		})
	})

	Describe("Get", func() {
		var (
			filename string
			data     []byte
			err      error
		)

		JustBeforeEach(func() {
			data, err = storage.Get(filename)
		})

		When("file exists", func() {
			BeforeEach(func() {
				filename = "struk_0001.jpg"
				testData := []byte("receipt image bytes")
				_, saveErr := storage.Save(filename, testData)
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the correct file data", func() {
				Expect(string(data)).To(Equal("receipt image bytes"))
			})
		})

		When("file does not exist", func() {
			BeforeEach(func() {
				filename = "missing.jpg"
			})

			It("returns the error", func() {
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("reading file"))
			})

			It("wraps fs.ErrNotExist", func() {
				Expect(err).To(MatchError(fs.ErrNotExist))
			})
		})
	})

	Describe("Delete", func() {
		var (
			filename string
			err      error
		)

		JustBeforeEach(func() {
			err = storage.Delete(filename)
		})

		When("file exists", func() {
			BeforeEach(func() {
				filename = "struk_0001.jpg"
				testData := []byte("receipt image bytes")
				_, saveErr := storage.Save(filename, testData)
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove the file from disk", func() {
				filePath := filepath.Join(tmpDir, filename)
				Expect(filePath).NotTo(BeAnExistingFile())
			})

			It("should make the file inaccessible via Get", func() {
				_, getErr := storage.Get(filename)
				Expect(getErr).To(HaveOccurred())
			})
		})

		When("file does not exist", func() {
			BeforeEach(func() {
				filename = "missing.jpg"
			})

			It("returns the error", func() {
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("deleting file"))
			})
		})
	})

	Describe("NewLocalStorage", func() {
		var (
			storagePath string
			storage     Storage
			err         error
		)

		JustBeforeEach(func() {
			storage, err = NewLocalStorage(storagePath)
		})

		When("directory does not exist", func() {
			BeforeEach(func() {
				baseDir := GinkgoT().TempDir()
				storagePath = filepath.Join(baseDir, "images")
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should create the directory", func() {
				Expect(storagePath).To(BeADirectory())
			})

			It("should allow saving files", func() {
				_, saveErr := storage.Save("struk_0001.jpg", []byte("data"))
				Expect(saveErr).NotTo(HaveOccurred())
			})
		})

		When("directory already exists", func() {
			BeforeEach(func() {
				storagePath = GinkgoT().TempDir()
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should allow saving files", func() {
				_, saveErr := storage.Save("struk_0001.jpg", []byte("data"))
				Expect(saveErr).NotTo(HaveOccurred())
			})
		})
	})

	Describe("client supplied names", func() {
		It("should keep path traversal inside the storage directory", func() {
			name, err := storage.Save("../../evil.jpg", []byte("data"))
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("evil.jpg"))
			Expect(filepath.Join(tmpDir, "evil.jpg")).To(BeAnExistingFile())

			data, err := storage.Get("../evil.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("data"))
		})

		DescribeTable("should reject names without a file component",
			func(name string) {
				_, err := storage.Save(name, []byte("data"))
				Expect(err).To(MatchError(ContainSubstring("invalid file name")))
				Expect(err).To(MatchError(fs.ErrInvalid))
			},
			Entry("empty", ""),
			Entry("parent directory", ".."),
			Entry("root", "/"),
		)
	})

	Describe("Touch", func() {
		It("should set the modification time", func() {
			_, err := storage.Save("struk_0001.jpg", []byte("data"))
			Expect(err).NotTo(HaveOccurred())

			at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
			Expect(storage.Touch("struk_0001.jpg", at)).To(Succeed())

			info, err := os.Stat(filepath.Join(tmpDir, "struk_0001.jpg"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.ModTime().Equal(at)).To(BeTrue())
		})

		It("returns the error for a missing file", func() {
			err := storage.Touch("missing.jpg", time.Now())
			Expect(err).To(MatchError(ContainSubstring("touching file")))
			Expect(err).To(MatchError(fs.ErrNotExist))
		})
	})

	Describe("List", func() {
		It("should return stored files with their modification times", func() {
			_, err := storage.Save("struk_0001.jpg", []byte("one"))
			Expect(err).NotTo(HaveOccurred())
			_, err = storage.Save("struk_0002.png", []byte("two"))
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Mkdir(filepath.Join(tmpDir, "nested"), 0755)).To(Succeed())

			at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
			Expect(storage.Touch("struk_0001.jpg", at)).To(Succeed())

			files, err := storage.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(HaveLen(2))
			Expect(files[0].Name).To(Equal("struk_0001.jpg"))
			Expect(files[0].ModTime.Equal(at)).To(BeTrue())
			Expect(files[1].Name).To(Equal("struk_0002.png"))
		})

		It("should return nothing for an empty directory", func() {
			files, err := storage.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(BeEmpty())
		})
	})
})
