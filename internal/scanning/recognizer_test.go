package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/otiai10/gosseract/v2"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	return img
}

func pngBytes() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, testImage())).To(Succeed())
	return buf.Bytes()
}

func jpegBytes() []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("toPNG", func() {
	It("should pass PNG data through untouched", func() {
		data := pngBytes()
		out, err := toPNG(data, "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(data))
	})

	It("should convert JPEG to PNG", func() {
		out, err := toPNG(jpegBytes(), "image/jpeg")
		Expect(err).NotTo(HaveOccurred())
		_, format, err := image.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("png"))
	})

	It("should default an empty content type to JPEG decoding", func() {
		_, err := toPNG(jpegBytes(), "")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject empty data", func() {
		_, err := toPNG(nil, "image/png")
		Expect(err).To(MatchError(ErrNoImageData))
	})

	It("should report undecodable data", func() {
		_, err := toPNG([]byte("not an image"), "image/jpeg; charset=binary")
		Expect(err).To(MatchError(ContainSubstring("decoding image/jpeg image")))
		Expect(err).To(MatchError(ErrUnsupportedImage))
	})

	It("should report an unreadable PDF as unsupported", func() {
		_, err := toPNG([]byte("not a pdf"), "application/pdf")
		Expect(err).To(MatchError(ErrUnsupportedImage))
	})
})

var _ = Describe("isHEIC", func() {
	DescribeTable("detects HEIC brands",
		func(data []byte, expected bool) {
			Expect(isHEIC(data)).To(Equal(expected))
		},
		Entry("heic", []byte("\x00\x00\x00\x18ftypheic\x00\x00"), true),
		Entry("mif1", []byte("\x00\x00\x00\x18ftypmif1\x00\x00"), true),
		Entry("mp4", []byte("\x00\x00\x00\x18ftypisom\x00\x00"), false),
		Entry("short", []byte("ftyp"), false),
	)
})

var _ = Describe("groupBoxes", func() {
	It("should group words by block and line and drop low confidence noise", func() {
		boxes := []gosseract.BoundingBox{
			{Box: image.Rect(0, 0, 30, 10), Word: "Kopi", Confidence: 91, BlockNum: 1, ParNum: 1, LineNum: 1},
			{Box: image.Rect(60, 1, 100, 11), Word: "15000", Confidence: 88, BlockNum: 1, ParNum: 1, LineNum: 1},
			{Box: image.Rect(0, 20, 20, 30), Word: "Teh", Confidence: 90, BlockNum: 1, ParNum: 1, LineNum: 2},
			{Box: image.Rect(5, 50, 9, 52), Word: "~", Confidence: 12, BlockNum: 2, ParNum: 1, LineNum: 1},
			{Box: image.Rect(0, 60, 40, 70), Word: "total", Confidence: 95, BlockNum: 3, ParNum: 1, LineNum: 1},
			{Box: image.Rect(0, 60, 40, 70), Word: "  ", Confidence: 95, BlockNum: 3, ParNum: 1, LineNum: 1},
		}

		result := groupBoxes(boxes, 40)

		Expect(result.Blocks).To(HaveLen(2))
		Expect(result.Blocks[0].Lines).To(HaveLen(2))
		Expect(result.Blocks[0].Lines[0].Text).To(Equal("Kopi 15000"))
		Expect(result.Blocks[0].Lines[0].Elements[1].Frame).To(Equal(&Frame{Left: 60, Top: 1, Width: 40, Height: 10}))
		Expect(result.Blocks[1].Lines[0].Elements).To(HaveLen(1))
		Expect(result.Text).To(Equal("Kopi 15000\nTeh\ntotal"))
	})
})

var _ = Describe("Ollama", func() {
	var (
		server     *ghttp.Server
		recognizer *Ollama
		result     *Result
		err        error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		recognizer, err = NewOllama(server.URL()+"/", "qwen2.5vl")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		result, err = recognizer.Recognize(context.Background(), pngBytes(), "image/png")
	})

	When("the model returns a layout", func() {
		BeforeEach(func() {
			content := "```json\n" + `{"blocks": [{"lines": [{"elements": [{"text": "Kopi", "frame": {"left": 1, "top": 2, "width": 3, "height": 4}}]}]}]}` + "\n```"
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					var req ollamaChatRequest
					Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
					Expect(req.Model).To(Equal("qwen2.5vl"))
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Images).To(ConsistOf(base64.StdEncoding.EncodeToString(pngBytes())))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: content},
					Done:    true,
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should decode the elements", func() {
			Expect(result.Fragments()).To(HaveLen(1))
			Expect(result.Text).To(Equal("Kopi"))
		})
	})

	When("the API fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
		})
	})

	When("the model does not answer with JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: "sorry"},
			}))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("parsing ocr result")))
		})
	})
})
