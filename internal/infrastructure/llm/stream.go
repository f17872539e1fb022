package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// streamChunk SSE 数据帧
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream 以流式方式补全，每个增量片段回调一次，返回完整文本
// 没有收到任何内容时返回 ErrEmptyStream
// onDelta 返回错误时中止读取
func (c *Client) Stream(ctx context.Context, prompt string, opts Options, onDelta func(string) error) (string, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	resp, err := c.post(ctx, buildRequest(prompt, opts, true))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := readResponseBody(resp)
		return "", &StatusError{Code: resp.StatusCode, Body: body}
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == nil {
			continue
		}

		delta := *chunk.Choices[0].Delta.Content
		full.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return full.String(), err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return full.String(), classifyTransportError(ctx, err)
	}
	// 服务端忽略 stream 参数直接返回 JSON 时没有任何 data 帧
	if full.Len() == 0 {
		return "", ErrEmptyStream
	}
	return full.String(), nil
}
