package harmony

// renderDeveloperContent renders developer instructions and the tools
// section directly into tokens (§4.4).
func (e *Encoding) renderDeveloperContent(dev DeveloperContent, out *[]uint32) error {
	body := e.acquireBuilder()
	if sz := estimateDeveloperContentSize(&dev); sz > 0 {
		if sz > 1<<18 {
			sz = 1 << 18
		}
		body.Grow(sz*2 + 128)
	}
	if dev.Instructions != nil && *dev.Instructions != "" {
		body.WriteString("# Instructions\n\n")
		body.WriteString(*dev.Instructions)
	}
	if len(dev.Tools) > 0 {
		if body.Len() > 0 {
			body.WriteString("\n\n")
		}
		if err := e.writeToolsSection(body, dev.Tools); err != nil {
			e.releaseBuilder(body)
			return err
		}
	}
	e.renderText(body.String(), out)
	e.releaseBuilder(body)
	return nil
}
